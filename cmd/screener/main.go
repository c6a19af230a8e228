package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"resume-screener-go/internal/agent"
	"resume-screener-go/internal/api/handler"
	"resume-screener-go/internal/api/router"
	"resume-screener-go/internal/config"
	appCoreLogger "resume-screener-go/internal/logger"
	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/processor"
	"resume-screener-go/internal/storage"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	qwenModel, err := agent.NewAliyunQwenChatModel(cfg.Qwen.APIKey, cfg.Qwen.Model, cfg.Qwen.APIURL, cfg.ModelTimeout())
	if err != nil {
		glog.Fatalf("初始化通义千问模型客户端失败: %v", err)
	}
	glog.Infof("模型客户端初始化成功: %s", qwenModel.ModelName())

	extractorLogger := componentLogger(cfg, "[ExtractorMain] ")
	textExtractor, err := parser.NewTextExtractor(ctx, parser.WithExtractorLogger(extractorLogger))
	if err != nil {
		glog.Fatalf("创建简历文本提取器失败: %v", err)
	}
	glog.Info("简历文本提取器初始化成功")

	screenerLogger := componentLogger(cfg, "[ScreenerMain] ")
	resumeScreener, err := parser.NewLLMResumeScreener(qwenModel, screenerLogger)
	if err != nil {
		glog.Fatalf("初始化LLM简历筛选器失败: %v", err)
	}
	glog.Info("LLM简历筛选器初始化成功")

	procComponents := &processor.Components{
		Extractor:  textExtractor,
		Screener:   resumeScreener,
		Candidates: storageManager.MySQL,
	}
	if storageManager.Redis != nil {
		procComponents.Dedup = storageManager.Redis
	} else {
		glog.Warn("Redis不可用，筛选去重短路已关闭")
	}

	processorLogger := log.New(appCoreLogger.Logger, "[ProcessorMain] ", log.LstdFlags|log.Lshortfile)
	procSettings := &processor.Settings{
		ModelTimeout: cfg.ModelTimeout(),
		Logger:       processorLogger,
	}

	screeningProcessor, err := processor.NewScreeningProcessor(procComponents, procSettings)
	if err != nil {
		glog.Fatalf("初始化筛选处理器失败: %v", err)
	}
	glog.Info("筛选处理器初始化成功")

	rescoreOpts := []processor.RescoreOption{
		processor.WithRescoreLogger(log.New(appCoreLogger.Logger, "[RescoreMain] ", log.LstdFlags|log.Lshortfile)),
	}
	if storageManager.Redis != nil {
		rescoreOpts = append(rescoreOpts, processor.WithRescoreLocker(storageManager.Redis))
	} else {
		glog.Warn("Redis不可用，人才库重评将不加分布式锁")
	}
	rescoreCoordinator, err := processor.NewRescoreCoordinator(
		resumeScreener,
		storageManager.MySQL,
		cfg.Rescore.Workers,
		cfg.Rescore.QPM,
		rescoreOpts...,
	)
	if err != nil {
		glog.Fatalf("初始化重评协调器失败: %v", err)
	}
	glog.Info("重评协调器初始化成功")

	screeningHandler := handler.NewScreeningHandler(screeningProcessor, rescoreCoordinator, storageManager.MySQL)
	glog.Info("ScreeningHandler初始化成功")

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, screeningHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

func initLogger(cfg *config.Config) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	// Hertz 的日志统一走 zerolog 适配器
	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
	switch cfg.Logger.Level {
	case "debug":
		glog.SetLevel(glog.LevelDebug)
	case "warn":
		glog.SetLevel(glog.LevelWarn)
	case "error":
		glog.SetLevel(glog.LevelError)
	default:
		glog.SetLevel(glog.LevelInfo)
	}
}

// componentLogger debug级别时输出组件内部日志，否则丢弃
func componentLogger(cfg *config.Config, prefix string) *log.Logger {
	if cfg.Logger.Level == "debug" {
		return log.New(os.Stderr, prefix, log.LstdFlags|log.Lshortfile)
	}
	return log.New(io.Discard, "", 0)
}
