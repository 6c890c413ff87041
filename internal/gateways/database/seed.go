package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database/models"
	"github.com/Konfistador/ExplorationAppBackend/internal/logger"
)

type seedStoryline struct {
	storyline progression.Storyline
	// members index into the seeded locations.
	members []int
}

var seedLocations = []progression.Location{
	{Name: "Old Town Square", Latitude: "51.4416", Longitude: "5.4697", Description: "The market square at the heart of the old town."},
	{Name: "Cathedral Tower", Latitude: "51.4389", Longitude: "5.4771", Description: "A gothic tower with a view over the rooftops."},
	{Name: "River Lock", Latitude: "51.4475", Longitude: "5.4853", Description: "A canal lock from the industrial age."},
	{Name: "Light Factory", Latitude: "51.4470", Longitude: "5.4580", Description: "The former light bulb works, now a creative hub."},
	{Name: "City Park Pond", Latitude: "51.4341", Longitude: "5.4870", Description: "A quiet pond in the municipal park."},
}

var seedStorylines = []seedStoryline{
	{
		storyline: progression.Storyline{Name: "Medieval Walk", Description: "Trace the old town from square to tower."},
		members:   []int{0, 1},
	},
	{
		storyline: progression.Storyline{Name: "Industrial Heritage", Description: "Follow the canal to the factory."},
		members:   []int{2, 3},
	},
	{
		storyline: progression.Storyline{Name: "Grand Tour", Description: "See every landmark in the city."},
		members:   []int{0, 1, 2, 3, 4},
	},
}

var seedTrophies = []progression.Trophy{
	{Name: "First Steps", Description: "Visit your first location."},
	{Name: "Storyteller", Description: "Complete a storyline."},
	{Name: "Cartographer", Description: "Visit every location."},
}

// Seed inserts demo locations, storylines and trophies. It does nothing when
// locations already exist.
func (db *DB) Seed(ctx context.Context, store progression.Store) error {
	count, err := db.bunDB.NewSelect().Model((*models.Location)(nil)).Count(ctx)
	if err == nil && count > 0 {
		logger.LogSystem("Seed data already present, skipping", slog.Int("existing_locations", count))
		return nil
	}

	return store.RunInTx(ctx, func(ctx context.Context, tx progression.Tx) error {
		ids := make([]int64, len(seedLocations))
		for i, l := range seedLocations {
			location := l
			if err := tx.Locations().Create(ctx, &location); err != nil {
				return err
			}
			ids[i] = location.ID
		}

		for _, s := range seedStorylines {
			storyline := s.storyline
			if err := tx.Storylines().Create(ctx, &storyline); err != nil {
				return err
			}
			for _, idx := range s.members {
				if err := tx.Storylines().AddLocation(ctx, storyline.ID, ids[idx]); err != nil {
					return err
				}
			}
		}

		for _, t := range seedTrophies {
			trophy := t
			if err := tx.Trophies().Create(ctx, &trophy); err != nil {
				return fmt.Errorf("failed to seed trophy %q: %w", trophy.Name, err)
			}
		}

		logger.LogSystem("Seed data inserted",
			slog.Int("locations", len(seedLocations)),
			slog.Int("storylines", len(seedStorylines)),
			slog.Int("trophies", len(seedTrophies)))
		return nil
	})
}
