// Package app assembles the detectors, stores and engine described by a
// config.Config. Both binaries build on it.
package app

import (
	"os"
	"path/filepath"

	"github.com/ironsheep/bento-measure-mcp/internal/calibration"
	"github.com/ironsheep/bento-measure-mcp/internal/config"
	"github.com/ironsheep/bento-measure-mcp/internal/detection"
	"github.com/ironsheep/bento-measure-mcp/internal/engine"
	"github.com/ironsheep/bento-measure-mcp/internal/imaging"
	"github.com/ironsheep/bento-measure-mcp/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// App owns the long-lived components. Close releases them.
type App struct {
	Config     *config.Config
	Engine     *engine.Engine
	Calibrator *calibration.Calibrator
	Cache      *imaging.ImageCache
	Log        *logrus.Logger
}

// New builds the components. A learned backend that fails to start is logged
// and left out, so the classical strategy keeps working.
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	classical, err := newClassical(cfg)
	if err != nil {
		return nil, err
	}

	learned := newLearned(cfg, log)

	st, err := newStore(cfg)
	if err != nil {
		if learned != nil {
			learned.Close()
		}
		return nil, err
	}

	calibrator := calibration.New(cfg.CardType, calibration.DefaultOptions(), log)
	cache := imaging.NewImageCache()

	eng, err := engine.New(engine.Config{
		Classical:  classical,
		Learned:    learned,
		Calibrator: calibrator,
		Store:      st,
		Cache:      cache,
		Logger:     log,
		Options:    cfg.EngineOptions(),
	})
	if err != nil {
		st.Close()
		if learned != nil {
			learned.Close()
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"classical":      cfg.ClassicalBackend,
		"learned":        cfg.LearnedBackend,
		"learned_ready":  learned != nil,
		"auto_calibrate": cfg.AutoCalibrate,
		"card":           calibrator.Card().Name,
		"log_dir":        cfg.LogDir,
		"sqlite":         cfg.SQLitePath,
	}).Info("Engine ready")

	return &App{
		Config:     cfg,
		Engine:     eng,
		Calibrator: calibrator,
		Cache:      cache,
		Log:        log,
	}, nil
}

// Close releases the detectors, the stores and the image cache.
func (a *App) Close() error {
	a.Log.WithField("cached_images", a.Cache.Len()).Debug("Releasing image cache")
	a.Cache.Clear()
	return a.Engine.Close()
}

func newClassical(cfg *config.Config) (detection.ClassicalDetector, error) {
	opts := cfg.NativeOptions()
	if cfg.ClassicalBackend == config.ClassicalOpenCV {
		d, err := detection.NewOpenCVClassical(opts)
		if err != nil {
			return nil, errors.Wrap(err, "classical backend opencv")
		}
		return d, nil
	}
	return detection.NewNative(opts), nil
}

func newLearned(cfg *config.Config, log logrus.FieldLogger) detection.LearnedDetector {
	var (
		d   detection.LearnedDetector
		err error
	)
	switch cfg.LearnedBackend {
	case config.LearnedONNX:
		d, err = detection.NewONNX(cfg.ONNXOptions())
	case config.LearnedRemote:
		d, err = detection.NewRemote(detection.RemoteOptions{URL: cfg.InferenceURL})
	default:
		return nil
	}
	if err != nil {
		log.WithError(err).WithField("backend", cfg.LearnedBackend).Warn("Learned detector unavailable, learned and fused modes degrade to classical")
		return nil
	}
	return d
}

// newStore writes JSON records under LogDir and, when configured, to sqlite
// as well.
func newStore(cfg *config.Config) (store.Store, error) {
	files, err := store.NewFileStore(cfg.LogDir)
	if err != nil {
		return nil, err
	}
	if cfg.SQLitePath == "" {
		return files, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
		files.Close()
		return nil, errors.Wrap(err, "create sqlite directory")
	}
	db, err := store.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		files.Close()
		return nil, err
	}
	return store.NewMultiStore(files, db), nil
}
