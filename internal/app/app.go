// Package app cablea las dependencias del servicio: config → adapters →
// stores → services → router. Sin globals: cada componente recibe sus
// dependencias explícitas.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/influmart/influmart/internal/cache"
	"github.com/influmart/influmart/internal/config"
	"github.com/influmart/influmart/internal/enrich"
	httpx "github.com/influmart/influmart/internal/http"
	acctctrl "github.com/influmart/influmart/internal/http/controllers/accounts"
	healthctrl "github.com/influmart/influmart/internal/http/controllers/health"
	linkctrl "github.com/influmart/influmart/internal/http/controllers/link"
	"github.com/influmart/influmart/internal/http/router"
	acctsvc "github.com/influmart/influmart/internal/http/services/accounts"
	linksvc "github.com/influmart/influmart/internal/http/services/link"
	"github.com/influmart/influmart/internal/pending"
	"github.com/influmart/influmart/internal/platform"
	"github.com/influmart/influmart/internal/platform/facebook"
	"github.com/influmart/influmart/internal/platform/instagram"
	"github.com/influmart/influmart/internal/platform/linkedin"
	"github.com/influmart/influmart/internal/platform/tiktok"
	"github.com/influmart/influmart/internal/platform/twitter"
	"github.com/influmart/influmart/internal/platform/youtube"
	"github.com/influmart/influmart/internal/store"
)

// App agrupa los componentes vivos del servicio.
type App struct {
	Cfg *config.Config

	Docs     store.DocumentStore
	Accounts *store.AccountStore
	Cache    cache.Client
	Registry *platform.Registry
	State    *platform.StateCodec
	Enrich   *enrich.Service
	Handler  http.Handler
}

// New construye la aplicación completa a partir de la configuración.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	docs, err := store.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("app: storage: %w", err)
	}

	cacheClient, err := cache.New(cfg.CacheConfig())
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("app: cache: %w", err)
	}

	state := platform.NewStateCodec(cfg.Link.StateSecret)
	registry := buildRegistry(cfg, state)

	accounts := store.NewAccountStore(docs)
	pendingStore := pending.NewStore(cacheClient)

	enrichSvc := enrich.NewService(enrich.Deps{
		Accounts: accounts,
		Registry: registry,
		Cache:    cacheClient,
		Horizon:  time.Duration(cfg.Enrich.HorizonMinutes) * time.Minute,
	})

	startSvc := linksvc.NewStartService(linksvc.StartDeps{
		Registry: registry,
		Pending:  pendingStore,
	})
	callbackSvc := linksvc.NewCallbackService(linksvc.CallbackDeps{
		Registry:           registry,
		State:              state,
		Pending:            pendingStore,
		Accounts:           accounts,
		SuccessRedirectURL: cfg.Link.SuccessRedirectURL,
	})
	accountsSvc := acctsvc.NewService(acctsvc.Deps{
		Accounts: accounts,
		Enrich:   enrichSvc,
	})

	metricsHandler, err := httpx.RegisterMetrics(nil)
	if err != nil {
		docs.Close()
		cacheClient.Close()
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	handler := router.New(router.Deps{
		Link: linkctrl.NewControllers(linkctrl.Deps{
			Start:            startSvc,
			Callback:         callbackSvc,
			ErrorRedirectURL: cfg.Link.ErrorRedirectURL,
		}),
		Accounts: acctctrl.NewController(accountsSvc),
		Health: healthctrl.NewController(map[string]healthctrl.Pinger{
			"storage": docs,
			"cache":   cacheClient,
		}),
		Metrics: metricsHandler,
	})

	return &App{
		Cfg:      cfg,
		Docs:     docs,
		Accounts: accounts,
		Cache:    cacheClient,
		Registry: registry,
		State:    state,
		Enrich:   enrichSvc,
		Handler:  handler,
	}, nil
}

// buildRegistry instancia un adapter por plataforma configurada.
func buildRegistry(cfg *config.Config, state *platform.StateCodec) *platform.Registry {
	adapters := make([]platform.Adapter, 0, len(cfg.Platforms))
	for _, p := range platform.All() {
		pc, ok := cfg.Platforms[string(p)]
		if !ok || !pc.Enabled() {
			continue
		}
		pcfg := platform.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  pc.RedirectURL,
			State:        state,
		}
		switch p {
		case platform.Instagram:
			adapters = append(adapters, instagram.New(pcfg))
		case platform.Facebook:
			adapters = append(adapters, facebook.New(pcfg))
		case platform.TikTok:
			adapters = append(adapters, tiktok.New(pcfg))
		case platform.YouTube:
			adapters = append(adapters, youtube.New(pcfg))
		case platform.Twitter:
			adapters = append(adapters, twitter.New(pcfg))
		case platform.LinkedIn:
			adapters = append(adapters, linkedin.New(pcfg))
		}
	}
	return platform.NewRegistry(adapters...)
}

// Close libera los recursos de la aplicación.
func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.Docs != nil {
		_ = a.Docs.Close()
	}
}
