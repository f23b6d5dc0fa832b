// Package sqlite persists client bindings in a local sqlite database,
// one row per client MAC.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
	"github.com/veesix-networks/osdhcpd/pkg/lease"
	"github.com/veesix-networks/osdhcpd/pkg/store"
)

func init() {
	store.Register("sqlite", New)
}

type Store struct {
	db *sql.DB
}

func New(path string) (store.Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open lease database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS leases (
		mac TEXT PRIMARY KEY,
		addr TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		expiration INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init lease schema: %w", err)
	}
	return nil
}

func (s *Store) Load() (map[dhcp.MAC]lease.CachedConfig, error) {
	rows, err := s.db.Query(`SELECT mac, addr, options, expiration FROM leases`)
	if err != nil {
		return nil, fmt.Errorf("load leases: %w", err)
	}
	defer rows.Close()

	entries := make(map[dhcp.MAC]lease.CachedConfig)
	for rows.Next() {
		var macStr, addrStr, optsJSON string
		var expiration int64
		if err := rows.Scan(&macStr, &addrStr, &optsJSON, &expiration); err != nil {
			return nil, fmt.Errorf("scan lease row: %w", err)
		}
		hw, err := net.ParseMAC(macStr)
		if err != nil {
			return nil, fmt.Errorf("lease row mac %q: %w", macStr, err)
		}
		cfg := lease.CachedConfig{Expiration: expiration}
		if err := cfg.Addr.UnmarshalText([]byte(addrStr)); err != nil {
			return nil, fmt.Errorf("lease row addr %q: %w", addrStr, err)
		}
		if err := json.Unmarshal([]byte(optsJSON), &cfg.Options); err != nil {
			return nil, fmt.Errorf("lease row options for %s: %w", macStr, err)
		}
		entries[dhcp.MACFromHardwareAddr(hw)] = cfg
	}
	return entries, rows.Err()
}

func (s *Store) Store(mac dhcp.MAC, cfg lease.CachedConfig) error {
	optsJSON, err := json.Marshal(cfg.Options)
	if err != nil {
		return fmt.Errorf("marshal lease options: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO leases (mac, addr, options, expiration) VALUES (?, ?, ?, ?)
		 ON CONFLICT(mac) DO UPDATE SET addr=excluded.addr, options=excluded.options, expiration=excluded.expiration`,
		mac.String(), cfg.Addr.String(), string(optsJSON), cfg.Expiration,
	)
	if err != nil {
		return fmt.Errorf("store lease for %s: %w", mac, err)
	}
	return nil
}

func (s *Store) Delete(mac dhcp.MAC) error {
	if _, err := s.db.Exec(`DELETE FROM leases WHERE mac = ?`, mac.String()); err != nil {
		return fmt.Errorf("delete lease for %s: %w", mac, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
