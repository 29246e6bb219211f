// Package archive stores the standings of finished games in Postgres.
//
// Rooms themselves are never persisted; the archive is write-only from the
// game's point of view and read back only for listings.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lox/blackjack/internal/game"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id          BIGSERIAL PRIMARY KEY,
		room_id     TEXT        NOT NULL,
		rounds      INTEGER     NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS games_finished_at_idx ON games (finished_at DESC)`,
	`CREATE TABLE IF NOT EXISTS game_standings (
		game_id    BIGINT  NOT NULL REFERENCES games (id) ON DELETE CASCADE,
		rank       INTEGER NOT NULL,
		player_id  TEXT    NOT NULL,
		name       TEXT    NOT NULL,
		chips      INTEGER NOT NULL,
		eliminated BOOLEAN NOT NULL,
		PRIMARY KEY (game_id, rank)
	)`,
}

// Game is an archived game with its final standings.
type Game struct {
	ID         int64           `json:"id"`
	RoomID     string          `json:"roomId"`
	Rounds     int             `json:"rounds"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Standings  []game.Standing `json:"standings"`
}

// Store is a Postgres-backed game archive. It implements game.Recorder.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// New connects to the database at dsn and verifies the connection.
func New(ctx context.Context, dsn string, logger *log.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect archive: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	return &Store{pool: pool, logger: logger.WithPrefix("archive")}, nil
}

// Migrate creates the archive tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
	}
	s.logger.Debug("Schema ready")
	return nil
}

// Record stores a finished game and its standings in one transaction.
func (s *Store) Record(ctx context.Context, rec game.GameRecord) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO games (room_id, rounds, started_at, finished_at)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			rec.RoomID, rec.Rounds, rec.StartedAt, rec.FinishedAt,
		).Scan(&id)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, st := range rec.Standings {
			batch.Queue(
				`INSERT INTO game_standings (game_id, rank, player_id, name, chips, eliminated)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				id, st.Rank, st.PlayerID, st.Name, st.Chips, st.Eliminated,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("record game %s: %w", rec.RoomID, err)
	}
	s.logger.Info("Game archived", "room", rec.RoomID, "players", len(rec.Standings))
	return nil
}

// Recent returns the most recently finished games, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Game, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, rounds, started_at, finished_at
		 FROM games ORDER BY finished_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Game, error) {
		var g Game
		err := row.Scan(&g.ID, &g.RoomID, &g.Rounds, &g.StartedAt, &g.FinishedAt)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	if len(games) == 0 {
		return games, nil
	}

	ids := make([]int64, len(games))
	index := make(map[int64]int, len(games))
	for i, g := range games {
		ids[i] = g.ID
		index[g.ID] = i
		games[i].Standings = []game.Standing{}
	}

	rows, err = s.pool.Query(ctx,
		`SELECT game_id, rank, player_id, name, chips, eliminated
		 FROM game_standings WHERE game_id = ANY($1) ORDER BY game_id, rank`, ids)
	if err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var gameID int64
		var st game.Standing
		if err := rows.Scan(&gameID, &st.Rank, &st.PlayerID, &st.Name, &st.Chips, &st.Eliminated); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		i := index[gameID]
		games[i].Standings = append(games[i].Standings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	return games, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
