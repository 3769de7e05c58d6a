package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/crownline/pageant/internal/app/api/server"
	"github.com/crownline/pageant/internal/app/service/notification"
	notificationlog "github.com/crownline/pageant/internal/app/service/notification_log"
	"github.com/crownline/pageant/internal/app/service/purchase"
	"github.com/crownline/pageant/internal/app/service/reconcile"
	"github.com/crownline/pageant/internal/app/service/statistics"
	"github.com/crownline/pageant/internal/platform/db"
	"github.com/crownline/pageant/internal/platform/pesapal"
	"github.com/crownline/pageant/pkg/config"
	"github.com/crownline/pageant/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	fx.Provide(pesapal.NewClient),
	server.Module,
	notification.Module,
	notificationlog.Module,
	statistics.Module,
	purchase.Module,
	reconcile.Module,
)
