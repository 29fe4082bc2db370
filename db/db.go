package db

import (
	"context"
	"fmt"
	"net/url"

	"stoplist-telegram/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is set by Init and used by migrations and the postgres state store.
var Pool *pgxpool.Pool

func Init(ctx context.Context, cfg config.DBConfig) error {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	var err error
	Pool, err = pgxpool.New(ctx, u.String())
	return err
}

func Close() {
	if Pool != nil {
		Pool.Close()
	}
}
