package domain

import "time"

type Event struct {
	ID        string
	Title     string
	Start     string
	StartTime time.Time
	AllDay    bool
}

type Article struct {
	Title       string
	Description string
	URL         string
	Source      string
	PublishedAt time.Time
}

type Weather struct {
	City         string
	Description  string
	TemperatureC float64
	FeelsLikeC   float64
	Humidity     int
	WindSpeed    float64
}

// Section is one summarized block of a digest. Error is set when the text
// could not be fetched or summarized.
type Section struct {
	Text    string `json:"text"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Digest struct {
	ID        int64     `json:"id"`
	Account   string    `json:"account"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Calendar  Section   `json:"calendar"`
	News      Section   `json:"news"`
	Weather   string    `json:"weather,omitempty"`
}
