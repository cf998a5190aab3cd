package mysql

import (
	"context"
	"errors"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/world/entity"
	"GeoConquest/internal/world/infra/persistence/model"
	"GeoConquest/modules/kit/errx"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const OpSaveWorld = "repo.world.Save"

type WorldRepository struct {
	db *gorm.DB
}

func NewWorldRepository(db *gorm.DB) *WorldRepository {
	return &WorldRepository{db: db}
}

// Migrate 建表。
func (r *WorldRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.TerritoryDoc{}, &model.PlayerDoc{})
}

func (r *WorldRepository) LoadWorld(ctx context.Context) (*entity.World, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("mysql world db is nil")
	}
	var trows []model.TerritoryDoc
	if err := r.db.WithContext(ctx).Find(&trows).Error; err != nil {
		return nil, errx.ErrUnavailable.WithCause(err).WithData("op", "repo.world.LoadTerritories")
	}
	var prows []model.PlayerDoc
	if err := r.db.WithContext(ctx).Find(&prows).Error; err != nil {
		return nil, errx.ErrUnavailable.WithCause(err).WithData("op", "repo.world.LoadPlayers")
	}

	territories := make([]domain.Territory, 0, len(trows))
	for _, row := range trows {
		territories = append(territories, model.DocToTerritory(row))
	}
	players := make([]domain.Player, 0, len(prows))
	for _, row := range prows {
		players = append(players, model.DocToPlayer(row))
	}
	return entity.NewWorld(territories, players), nil
}

// Save 在一个事务里写完一次增量：格子与玩家 upsert，被淘汰的玩家删除。
func (r *WorldRepository) Save(ctx context.Context, s *entity.WorldPersistSnapshot) error {
	if s == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return errors.New("mysql world db is nil")
	}
	cs := s.Changes

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(cs.Territories) > 0 {
			rows := make([]model.TerritoryDoc, 0, len(cs.Territories))
			for _, t := range cs.Territories {
				rows = append(rows, model.TerritoryToDoc(t))
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(rows, 200).Error; err != nil {
				return err
			}
		}
		if len(cs.Players) > 0 {
			rows := make([]model.PlayerDoc, 0, len(cs.Players))
			for _, p := range cs.Players {
				rows = append(rows, model.PlayerToDoc(p))
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(rows, 200).Error; err != nil {
				return err
			}
		}
		if len(cs.RemovedPlayers) > 0 {
			ids := make([]string, 0, len(cs.RemovedPlayers))
			for _, id := range cs.RemovedPlayers {
				ids = append(ids, string(id))
			}
			if err := tx.Where("id IN ?", ids).Delete(&model.PlayerDoc{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errx.ErrUnavailable.WithCause(err).WithData("op", OpSaveWorld).WithData("version", s.Version)
	}
	return nil
}
