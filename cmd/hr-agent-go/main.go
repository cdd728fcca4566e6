package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"hr-agent-go/internal/api/handler"
	"hr-agent-go/internal/api/router"
	"hr-agent-go/internal/config"
	"hr-agent-go/internal/consumer"
	"hr-agent-go/internal/evaluation"
	"hr-agent-go/internal/intake"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/mail"
	"hr-agent-go/internal/status"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/voiceagent"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "配置文件路径，留空时按默认路径搜索")
	pflag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置文件失败")
	}

	// 2. 初始化日志系统并桥接Hertz日志
	initLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. 初始化存储管理器
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	// 4. 初始化外部协作方客户端（均可缺省）
	var mailClient *mail.Client
	if cfg.Mail.BaseURL != "" {
		mailClient = mail.NewClient(cfg.Mail)
	} else {
		logger.Warn().Msg("邮件协作方未配置，通知与收件箱轮询不可用")
	}

	var voiceClient *voiceagent.Client
	if cfg.VoiceAgent.BaseURL != "" {
		voiceClient = voiceagent.NewClient(cfg.VoiceAgent)
	}

	// 5. 组装业务服务
	var mailTransportForStatus status.MailTransport
	var mailTransportForIntake intake.MailTransport
	if mailClient != nil {
		mailTransportForStatus = mailClient
		mailTransportForIntake = mailClient
	}

	var cvLinker status.CVLinker
	var reportCache status.ReportCache
	var dedupBackstop intake.DedupBackstop
	if storageManager.MinIO != nil {
		cvLinker = storageManager.MinIO
	}
	if storageManager.Redis != nil {
		reportCache = storageManager.Redis
		dedupBackstop = storageManager.Redis
	}

	var voiceProvisioner intake.VoiceAgentProvisioner
	if voiceClient != nil {
		voiceProvisioner = voiceClient
	}

	statusSvc := status.NewService(storageManager.MySQL, cvLinker, mailTransportForStatus, reportCache)
	evaluationSvc := evaluation.NewService(storageManager.MySQL)

	resolver := intake.NewClientResolver(storageManager.MySQL)
	intakeSvc := intake.NewService(
		intake.NewDedup(cfg.Intake.DedupCapacity),
		dedupBackstop,
		resolver,
		storageManager.MySQL,
		voiceProvisioner,
		mailTransportForIntake,
		statusSvc,
	)

	// 6. 启动队列消费者
	if storageManager.RabbitMQ != nil {
		consumers, err := consumer.StartAll(storageManager.RabbitMQ, &cfg.RabbitMQ, intakeSvc, evaluationSvc)
		if err != nil {
			logger.Fatal().Err(err).Msg("启动队列消费者失败")
		}
		defer consumers.StopAll()
	} else {
		logger.Warn().Msg("RabbitMQ未配置，队列消费者未启动")
	}

	// 7. 启动收件箱轮询
	var poller *intake.Poller
	if mailClient != nil {
		poller = intake.NewPoller(intakeSvc, mailClient,
			time.Duration(cfg.Intake.PollIntervalSeconds)*time.Second)
		// 有队列时走发布-消费路径，处理失败由nack重投递兜底
		if storageManager.RabbitMQ != nil {
			poller.ForwardTo(storageManager.RabbitMQ,
				cfg.RabbitMQ.IntakeExchange, cfg.RabbitMQ.IntakeRoutingKey)
		}
		go poller.Run(ctx)
	}

	// 8. 创建HTTP服务器并注册路由
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
	)
	router.RegisterRoutes(h, cfg.API.Key,
		handler.NewIntakeHandler(poller, statusSvc),
		handler.NewEvaluationHandler(evaluationSvc),
	)

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	// 9. 等待终止信号后优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP服务器关闭失败")
	}

	logger.Info().Msg("优雅退出完成")
}

// initLogger 初始化日志系统，并把Hertz框架日志桥接到zerolog
func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	logger.Logger = logger.Logger.With().
		Str("app", "hr-agent-go").
		Logger()

	hlog.SetLogger(hertzzerolog.From(logger.Logger))
}
