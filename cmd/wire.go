package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/customk9/booking-gateway/internal/adapters/odoo"
	"github.com/customk9/booking-gateway/internal/adapters/state"
	"github.com/customk9/booking-gateway/internal/application"
	"github.com/customk9/booking-gateway/internal/config"
	"github.com/customk9/booking-gateway/internal/ports"
)

type app struct {
	cfg          config.Config
	log          zerolog.Logger
	sessions     *application.SessionService
	dispatcher   *application.Dispatcher
	availability *application.AvailabilityService
	bookings     *application.BookingService
	backend      *odoo.Client
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	backend, err := odoo.NewClient(odoo.Config{
		BaseURL:        cfg.Backend.URL,
		Database:       cfg.Backend.Database,
		RequestTimeout: cfg.Backend.RequestTimeout,
		SessionTTL:     cfg.Session.TTL,
	}, odoo.WithLogger(log.With().Str("component", "backend").Logger()))
	if err != nil {
		return nil, fmt.Errorf("wire backend client: %w", err)
	}

	store, err := state.NewStore(cfg.Session.StatePath, []byte(cfg.Session.SigningSecret),
		state.WithMaxAge(cfg.Session.MaxAge),
		state.WithLogger(log.With().Str("component", "state").Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("wire session store: %w", err)
	}

	clock := ports.SystemClock{}

	sessions := application.NewSessionService(backend, store, clock, cfg.AdminCredential(),
		application.WithSessionLogger(log.With().Str("component", "sessions").Logger()))
	sessions.Restore()

	dispatcher := application.NewDispatcher(backend, sessions,
		log.With().Str("component", "dispatcher").Logger())

	var calendarOpts []odoo.CalendarOption
	if !cfg.AdminCredential().Empty() {
		calendarOpts = append(calendarOpts, odoo.WithPrivilegedWrites())
	}
	calendar := odoo.NewCalendar(dispatcher, calendarOpts...)

	hours, err := cfg.BusinessHours()
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		backend:  backend,
		availability: application.NewAvailabilityService(calendar, clock, hours,
			log.With().Str("component", "availability").Logger()),
		bookings: application.NewBookingService(calendar, clock,
			log.With().Str("component", "bookings").Logger()),
		dispatcher: dispatcher,
	}, nil
}
