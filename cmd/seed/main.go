package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/spec-kit/org-directory/internal/auth"
	"github.com/spec-kit/org-directory/internal/config"
	"github.com/spec-kit/org-directory/internal/domain"
	"github.com/spec-kit/org-directory/internal/observability"
	"github.com/spec-kit/org-directory/internal/persistence"
	"github.com/spec-kit/org-directory/internal/repository"
)

// Seeds the demo facility tree and a handful of users. The tree is built
// once; facilities are read-only afterwards, so the seeder refuses to run
// against a non-empty database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	if err := seed(ctx, cfg, pg, logger); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
}

func seed(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) error {
	facilityRepo := repository.NewFacilityRepository(pg.PoolHandle())
	userRepo := repository.NewUserRepository(pg.PoolHandle())

	count, err := facilityRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("database already seeded", zap.Int64("facilities", count))
		return nil
	}

	headOffice := &domain.Facility{Name: "Head Office", Type: domain.FacilityTypeOffice}
	if err := facilityRepo.Create(ctx, headOffice); err != nil {
		return err
	}

	northRegion := &domain.Facility{Name: "North Region", Type: domain.FacilityTypeOffice, ParentID: &headOffice.ID}
	southRegion := &domain.Facility{Name: "South Region", Type: domain.FacilityTypeOffice, ParentID: &headOffice.ID}
	for _, facility := range []*domain.Facility{northRegion, southRegion} {
		if err := facilityRepo.Create(ctx, facility); err != nil {
			return err
		}
	}

	downtownStore := &domain.Facility{Name: "Downtown Store", Type: domain.FacilityTypeStore, ParentID: &northRegion.ID}
	harborStore := &domain.Facility{Name: "Harbor Store", Type: domain.FacilityTypeStore, ParentID: &southRegion.ID}
	airportStore := &domain.Facility{Name: "Airport Store", Type: domain.FacilityTypeStore, ParentID: &northRegion.ID}
	for _, facility := range []*domain.Facility{downtownStore, harborStore, airportStore} {
		if err := facilityRepo.Create(ctx, facility); err != nil {
			return err
		}
	}

	seedUsers := []struct {
		name     string
		role     domain.UserRole
		username string
		password string
		facility *domain.Facility
	}{
		{"Ada Collins", domain.RoleManager, "ada.collins", "password1", headOffice},
		{"Ben Ortiz", domain.RoleEmployee, "ben.ortiz", "password2", headOffice},
		{"Cara Novak", domain.RoleManager, "cara.novak", "password3", northRegion},
		{"Dan Weaver", domain.RoleManager, "dan.weaver", "password4", southRegion},
		{"Eve Lindqvist", domain.RoleManager, "eve.lindqvist", "password5", downtownStore},
		{"Filip Horak", domain.RoleEmployee, "filip.horak", "password6", harborStore},
		{"Grace Tan", domain.RoleEmployee, "grace.tan", "password7", airportStore},
	}

	for _, entry := range seedUsers {
		hash, err := auth.HashPassword(entry.password, cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}
		user := &domain.User{
			Name:         entry.name,
			Role:         entry.role,
			Username:     entry.username,
			PasswordHash: hash,
			FacilityID:   entry.facility.ID,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return err
		}
	}

	logger.Info("database seeded", zap.Int("facilities", 6), zap.Int("users", len(seedUsers)))
	return nil
}
