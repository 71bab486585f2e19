package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dailybrief/internal/domain"

	"golang.org/x/oauth2"
)

func (d *Database) LoadToken(ctx context.Context, account string) (*oauth2.Token, error) {
	query := "select token from oauth_tokens where account = ?"

	var tokenJSON []byte
	err := d.db.QueryRowContext(ctx, query, strings.TrimSpace(account)).Scan(&tokenJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}

	var token oauth2.Token
	if err = json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}

	return &token, nil
}

func (d *Database) SaveToken(ctx context.Context, account string, token *oauth2.Token) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return errors.New("account is empty")
	}
	if token == nil {
		return errors.New("token is nil")
	}

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	query := `insert into oauth_tokens (account, token, updated_at) values (?, ?, ?)
	on conflict (account) do update set token = excluded.token, updated_at = excluded.updated_at`

	_, err = d.db.ExecContext(ctx, query, account, string(tokenJSON), time.Now().UTC())

	return err
}

func (d *Database) DeleteToken(ctx context.Context, account string) error {
	query := "delete from oauth_tokens where account = ?"

	_, err := d.db.ExecContext(ctx, query, strings.TrimSpace(account))

	return err
}

func (d *Database) SaveDigest(ctx context.Context, digest *domain.Digest) error {
	if digest == nil {
		return errors.New("digest is nil")
	}

	if digest.CreatedAt.IsZero() {
		digest.CreatedAt = time.Now().UTC()
	}

	query := `insert into digests (
		account, city, created_at,
		calendar_text, calendar_summary, calendar_error,
		news_text, news_summary, news_error,
		weather
	) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := d.db.ExecContext(ctx, query,
		digest.Account, digest.City, digest.CreatedAt.UTC(),
		digest.Calendar.Text, digest.Calendar.Summary, digest.Calendar.Error,
		digest.News.Text, digest.News.Summary, digest.News.Error,
		digest.Weather,
	)
	if err != nil {
		return fmt.Errorf("insert digest: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get digest ID: %w", err)
	}
	digest.ID = id

	return nil
}

func (d *Database) LatestDigest(ctx context.Context, account string) (*domain.Digest, error) {
	digests, err := d.ListDigests(ctx, account, 1)
	if err != nil {
		return nil, err
	}

	if len(digests) == 0 {
		return nil, ErrNotFound
	}

	return &digests[0], nil
}

func (d *Database) ListDigests(ctx context.Context, account string, limit int) ([]domain.Digest, error) {
	if limit <= 0 {
		limit = 1
	}

	query := `select id, account, city, created_at,
		calendar_text, calendar_summary, calendar_error,
		news_text, news_summary, news_error,
		weather
	from digests
	where account = ?
	order by created_at desc, id desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, strings.TrimSpace(account), limit)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"account", account,
				"operation", "ListDigests")
		}
	}()

	var digests []domain.Digest
	for rows.Next() {
		var dg domain.Digest
		if err = rows.Scan(
			&dg.ID, &dg.Account, &dg.City, &dg.CreatedAt,
			&dg.Calendar.Text, &dg.Calendar.Summary, &dg.Calendar.Error,
			&dg.News.Text, &dg.News.Summary, &dg.News.Error,
			&dg.Weather,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		digests = append(digests, dg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return digests, nil
}
