package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/shared/infrastructure/sqlite"
)

// Cache 是离线世界的 sqlite 落盘，表结构与权威存储的两张表一一对应。
type Cache struct {
	db *sql.DB
}

func OpenCache(path string) (*Cache, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	c, err := NewCache(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func NewCache(db *sql.DB) (*Cache, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS territories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL DEFAULT '',
			strength INTEGER NOT NULL,
			lat REAL NOT NULL,
			lng REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_territories_owner ON territories(owner_id);`,
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			color TEXT NOT NULL,
			money INTEGER NOT NULL,
			energy INTEGER NOT NULL,
			max_energy INTEGER NOT NULL,
			inventory TEXT NOT NULL,
			last_seen INTEGER NOT NULL,
			last_tick INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return nil, err
		}
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) Load(ctx context.Context) ([]domain.Territory, []domain.Player, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, owner_id, strength, lat, lng FROM territories ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	var ts []domain.Territory
	for rows.Next() {
		var (
			t         domain.Territory
			id, owner string
		)
		if err := rows.Scan(&id, &t.Name, &owner, &t.Strength, &t.Lat, &t.Lng); err != nil {
			_ = rows.Close()
			return nil, nil, err
		}
		t.ID = domain.CellID(id)
		t.OwnerID = domain.PlayerID(owner)
		ts = append(ts, t)
	}
	if err := rows.Close(); err != nil {
		return nil, nil, err
	}

	prow, err := c.db.QueryContext(ctx, `SELECT id, username, color, money, energy, max_energy, inventory, last_seen, last_tick FROM players ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	defer prow.Close()
	var ps []domain.Player
	for prow.Next() {
		var (
			p                  domain.Player
			id                 string
			inv                string
			lastSeen, lastTick int64
		)
		if err := prow.Scan(&id, &p.Username, &p.Color, &p.Money, &p.Energy, &p.MaxEnergy, &inv, &lastSeen, &lastTick); err != nil {
			return nil, nil, err
		}
		p.ID = domain.PlayerID(id)
		if inv != "" {
			if err := json.Unmarshal([]byte(inv), &p.Inventory); err != nil {
				return nil, nil, err
			}
		}
		p.LastSeen = fromNanos(lastSeen)
		p.LastTick = fromNanos(lastTick)
		ps = append(ps, p)
	}
	return ts, ps, prow.Err()
}

// Save 在一个事务里写入一组变更。
func (c *Cache) Save(ctx context.Context, cs domain.ChangeSet) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := writeChanges(ctx, tx, cs); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Replace 清空后整体写入。
func (c *Cache) Replace(ctx context.Context, ts []domain.Territory, ps []domain.Player) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range []string{`DELETE FROM territories`, `DELETE FROM players`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := writeChanges(ctx, tx, domain.ChangeSet{Territories: ts, Players: ps}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func writeChanges(ctx context.Context, tx *sql.Tx, cs domain.ChangeSet) error {
	for _, t := range cs.Territories {
		_, err := tx.ExecContext(ctx, `INSERT INTO territories (id, name, owner_id, strength, lat, lng) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name=excluded.name, owner_id=excluded.owner_id, strength=excluded.strength, lat=excluded.lat, lng=excluded.lng`,
			string(t.ID), t.Name, string(t.OwnerID), t.Strength, t.Lat, t.Lng)
		if err != nil {
			return err
		}
	}
	for _, id := range cs.RemovedPlayers {
		if _, err := tx.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, string(id)); err != nil {
			return err
		}
	}
	for _, p := range cs.Players {
		inv, err := json.Marshal(p.Inventory)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO players (id, username, color, money, energy, max_energy, inventory, last_seen, last_tick) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET username=excluded.username, color=excluded.color, money=excluded.money, energy=excluded.energy,
			max_energy=excluded.max_energy, inventory=excluded.inventory, last_seen=excluded.last_seen, last_tick=excluded.last_tick`,
			string(p.ID), p.Username, p.Color, p.Money, p.Energy, p.MaxEnergy, string(inv), toNanos(p.LastSeen), toNanos(p.LastTick))
		if err != nil {
			return err
		}
	}
	return nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
