package mongodb

import (
	"context"
	"errors"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/world/entity"
	"GeoConquest/internal/world/infra/persistence/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	territoryCollection = "territories"
	playerCollection    = "players"
)

type WorldRepository struct {
	db          *mongo.Database
	territories *mongo.Collection
	players     *mongo.Collection
}

func NewWorldRepository(db *mongo.Database) *WorldRepository {
	return &WorldRepository{
		db:          db,
		territories: db.Collection(territoryCollection),
		players:     db.Collection(playerCollection),
	}
}

// EnsureIndexes 为按 owner 过滤建索引。
func (r *WorldRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.territories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}},
	})
	return err
}

func (r *WorldRepository) LoadWorld(ctx context.Context) (*entity.World, error) {
	if r == nil || r.territories == nil {
		return nil, errors.New("mongodb world collections are nil")
	}

	var tdocs []model.TerritoryDoc
	cur, err := r.territories.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &tdocs); err != nil {
		return nil, err
	}

	var pdocs []model.PlayerDoc
	cur, err = r.players.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &pdocs); err != nil {
		return nil, err
	}

	territories := make([]domain.Territory, 0, len(tdocs))
	for _, d := range tdocs {
		territories = append(territories, model.DocToTerritory(d))
	}
	players := make([]domain.Player, 0, len(pdocs))
	for _, d := range pdocs {
		players = append(players, model.DocToPlayer(d))
	}
	return entity.NewWorld(territories, players), nil
}

// Save 以批量 upsert 写入增量。先写格子再删玩家，中途失败时整个快照会被重放，写入是幂等的。
func (r *WorldRepository) Save(ctx context.Context, s *entity.WorldPersistSnapshot) error {
	if s == nil {
		return nil
	}
	if r == nil || r.territories == nil {
		return errors.New("mongodb world collections are nil")
	}
	cs := s.Changes

	if len(cs.Territories) > 0 {
		models := make([]mongo.WriteModel, 0, len(cs.Territories))
		for _, t := range cs.Territories {
			doc := model.TerritoryToDoc(t)
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": doc.ID}).
				SetReplacement(doc).
				SetUpsert(true))
		}
		if _, err := r.territories.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return err
		}
	}

	if len(cs.Players) > 0 {
		models := make([]mongo.WriteModel, 0, len(cs.Players))
		for _, p := range cs.Players {
			doc := model.PlayerToDoc(p)
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": doc.ID}).
				SetReplacement(doc).
				SetUpsert(true))
		}
		if _, err := r.players.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return err
		}
	}

	if len(cs.RemovedPlayers) > 0 {
		ids := make([]string, 0, len(cs.RemovedPlayers))
		for _, id := range cs.RemovedPlayers {
			ids = append(ids, string(id))
		}
		if _, err := r.players.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
			return err
		}
	}
	return nil
}
