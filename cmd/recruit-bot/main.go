package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/recruitbot/recruit-bot/internal/api"
	"github.com/recruitbot/recruit-bot/internal/biz"
	"github.com/recruitbot/recruit-bot/internal/biz/usecase"
	"github.com/recruitbot/recruit-bot/internal/conf"
	"github.com/recruitbot/recruit-bot/internal/data"
	"github.com/recruitbot/recruit-bot/internal/infra/discord"
	"github.com/recruitbot/recruit-bot/internal/server"
	"github.com/recruitbot/recruit-bot/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "recruit-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration; a missing token stops here, before any store or
	// scheduler is created
	cfg, err := conf.LoadFromEnv()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	logger := cfg.NewLogger()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	catalog, err := conf.LoadCatalog(cfg.CatalogPath, os.Getenv, logger)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	renderer, err := usecase.NewRenderer(catalog, loc)
	if err != nil {
		return errors.Wrap(err, "parse catalog templates")
	}

	// Initialize clients
	discordClient, err := discord.NewClient(cfg.Discord.Token, cfg.Discord.AppID, cfg.Discord.GuildID, cfg.Debug, logger)
	if err != nil {
		return err
	}

	// Initialize repository layer
	repos, err := data.NewRepositories(discordClient, cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return errors.Wrap(err, "create repositories")
	}
	defer repos.Close()

	logger.Info("campaign store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize usecase layer
	store := usecase.NewCampaignStore(repos.Campaign, logger)
	store.Load(ctx)

	inbox := usecase.NewInbox()
	dialogUC := usecase.NewDialogUsecase(catalog, inbox, cfg.ToDialogConfig(loc), logger)
	announcementUC := usecase.NewAnnouncementUsecase(repos.Platform, renderer, logger)
	membershipUC := usecase.NewMembershipUsecase(catalog, store, repos.Platform, cfg.Schedule.SupersedeTimeout, logger)
	deadlineUC := usecase.NewDeadlineUsecase(catalog, store, repos.Platform, renderer, cfg.ToDeadlineConfig(), logger)
	campaignUC := usecase.NewCampaignUsecase(catalog, store, dialogUC, announcementUC, membershipUC, renderer, logger)

	ucs := &biz.Usecases{
		Campaign:   campaignUC,
		Dialog:     dialogUC,
		Membership: membershipUC,
		Deadline:   deadlineUC,
		Inbox:      inbox,
		Store:      store,
	}

	// Initialize service and server layer
	scheduler := service.NewDeadlineScheduler(ucs.Deadline, logger)
	srv := server.NewDiscordServer(discordClient, catalog, ucs.Campaign, ucs.Membership, ucs.Inbox, logger)
	apiServer := api.NewServer(cfg.Server.Port, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(apiServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return apiServer.Stop(shutdownCtx)
	})

	g.Go(func() error {
		if err := srv.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return srv.Stop()
	})

	g.Go(func() error {
		scheduler.Start(gctx)
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	logger.Info("recruit-bot started", "types", catalog.TypeIDs(), "timezone", loc.String())

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", "error", err)
		return err
	}
	logger.Info("recruit-bot stopped")
	return nil
}
