package credentials

import (
	"context"
	"errors"
	"strings"

	"recipeshot/internal/infra"
	"recipeshot/internal/sqlinline"
)

// Settings keys under which the generation service credentials are persisted.
const (
	KeyChannelID    = "imagegen_channel_id"
	KeyAccountToken = "imagegen_account_token"
)

// Store reads and writes generation credentials in the settings table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Value returns the setting for key, or "" when the key is absent.
func (s *Store) Value(ctx context.Context, key string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectSetting, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// SetPair persists the channel id and account token together. Both are
// required; a partial pair is useless to the resolver.
func (s *Store) SetPair(ctx context.Context, channelID, token string) error {
	channelID = strings.TrimSpace(channelID)
	token = strings.TrimSpace(token)
	if channelID == "" || token == "" {
		return errors.New("credentials: channel id and account token are both required")
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertSetting, KeyChannelID, channelID); err != nil {
		return err
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertSetting, KeyAccountToken, token)
	return err
}
