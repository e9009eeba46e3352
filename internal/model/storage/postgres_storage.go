package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	// postgres driver
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"max.ks1230/expenses-bot/internal/entity/user"
	"max.ks1230/expenses-bot/internal/logger"
)

const dsnTemplate = "user=%s password=%s host=%s dbname=%s sslmode=disable"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type config interface {
	Host() string
	Username() string
	Password() string
	Database() string
}

// PostgresStorage persists one JSON record per user, mirroring the
// get/set contract of the storage interface. Appending happens on the
// decoded record, not in SQL, so the row is always replaced whole.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config config) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", fmt.Sprintf(dsnTemplate,
		config.Username(),
		config.Password(),
		config.Host(),
		config.Database()))
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	return &PostgresStorage{db}, nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, id int64) (user.Record, error) {
	query := psql.Select("record").
		From("user_records").
		Where(sq.Eq{"id": id})

	var raw []byte
	err := query.RunWith(s.db).QueryRowContext(ctx).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return user.Record{}, nil
	}
	if err != nil {
		return user.Record{}, errors.Wrap(err, "get user")
	}

	var rec user.Record
	if err = json.Unmarshal(raw, &rec); err != nil {
		return user.Record{}, errors.Wrap(err, "get user")
	}
	return rec, nil
}

func (s *PostgresStorage) SaveByID(ctx context.Context, id int64, rec user.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "save user")
	}

	query := psql.Insert("user_records").
		Columns("id", "record", "updated_at").
		Values(id, raw, time.Now()).
		Suffix("ON CONFLICT(id) DO UPDATE SET record = ?, updated_at = ?",
			raw, time.Now())

	_, err = query.RunWith(s.db).ExecContext(ctx)
	return errors.Wrap(err, "save user")
}

func (s *PostgresStorage) GetAll(ctx context.Context) (map[int64]user.Record, error) {
	query := psql.Select("id", "record").
		From("user_records")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get all users")
	}
	defer func() {
		rowErr := rows.Close()
		if rowErr != nil {
			logger.Error("error closing rows", zap.Error(rowErr))
		}
	}()

	res := make(map[int64]user.Record)
	for rows.Next() {
		var id int64
		var raw []byte
		if err = rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "get all users")
		}
		var rec user.Record
		if err = json.Unmarshal(raw, &rec); err != nil {
			return nil, errors.Wrap(err, "get all users")
		}
		res[id] = rec
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "get all users")
	}

	return res, nil
}
