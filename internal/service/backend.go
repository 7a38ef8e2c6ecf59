package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/repository"
)

// Backend hands out the Store a request works against.
type Backend interface {
	Session(ctx context.Context, barID string) (Store, error)
}

// SingleBackend always returns the same store.
type SingleBackend struct{ Store Store }

func (b SingleBackend) Session(context.Context, string) (Store, error) { return b.Store, nil }

// ProbeTimeout bounds the health probe FallbackBackend runs per request.
const ProbeTimeout = 500 * time.Millisecond

// FallbackBackend serves requests from primary while its probe
// succeeds.  While primary is down a bar is served from fallback only if
// fallback already holds that bar's tables; any other request gets a
// StorageError so an outage never reads as "no availability".  Both
// stores close the double-booking race on their own; they do not share
// data.
type FallbackBackend struct {
	primary  Store
	probe    func(ctx context.Context) error
	fallback Store
	log      logrus.FieldLogger
}

func NewFallbackBackend(primary Store, probe func(ctx context.Context) error, fallback Store, log logrus.FieldLogger) *FallbackBackend {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FallbackBackend{primary: primary, probe: probe, fallback: fallback, log: log}
}

// Session probes the primary.  An empty barID asks for every bar, which
// fallback can never vouch for.
func (b *FallbackBackend) Session(ctx context.Context, barID string) (Store, error) {
	pctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	err := b.probe(pctx)
	if err == nil {
		return b.primary, nil
	}
	if ctx.Err() != nil {
		return nil, &StorageError{Op: "probe primary store", Err: ctx.Err()}
	}
	if barID == "" {
		return nil, &StorageError{Op: "probe primary store", Err: err}
	}
	tables, ferr := b.fallback.ListTables(ctx, barID, model.TableFilter{})
	if ferr != nil || len(tables) == 0 {
		b.log.WithError(err).WithField("bar_id", barID).Error("primary store unavailable and fallback holds no data for bar")
		return nil, &StorageError{Op: "probe primary store", Err: err}
	}
	b.log.WithError(err).WithField("bar_id", barID).Warn("primary store unavailable, serving from fallback")
	return b.fallback, nil
}

// FallbackConfigs reads settings from primary and, when primary fails
// for any reason other than a missing row, from fallback.  A bar fallback
// has no settings for keeps the primary error: defaults would silently
// reopen a bar whose booking switch is off.  Writes only go to primary so
// an outage cannot fork a bar's settings.
type FallbackConfigs struct {
	primary  ConfigStore
	fallback ConfigStore
	log      logrus.FieldLogger
}

func NewFallbackConfigs(primary, fallback ConfigStore, log logrus.FieldLogger) *FallbackConfigs {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FallbackConfigs{primary: primary, fallback: fallback, log: log}
}

func (f *FallbackConfigs) GetReservationConfig(ctx context.Context, barID string) (model.ReservationConfig, error) {
	cfg, err := f.primary.GetReservationConfig(ctx, barID)
	if err == nil || errors.Is(err, repository.ErrNotFound) || ctx.Err() != nil {
		return cfg, err
	}
	fcfg, ferr := f.fallback.GetReservationConfig(ctx, barID)
	if ferr != nil {
		return model.ReservationConfig{}, &StorageError{Op: "get reservation config", Err: err}
	}
	f.log.WithError(err).WithField("bar_id", barID).Warn("primary config store unavailable, serving from fallback")
	return fcfg, nil
}

func (f *FallbackConfigs) SaveReservationConfig(ctx context.Context, cfg model.ReservationConfig) error {
	return f.primary.SaveReservationConfig(ctx, cfg)
}
