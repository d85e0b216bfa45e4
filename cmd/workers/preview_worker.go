package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"networkers-home/certificate-portal/certificate-portal-backend/internal/certificates"
	"networkers-home/certificate-portal/certificate-portal-backend/internal/config"
	"networkers-home/certificate-portal/certificate-portal-backend/internal/templates"
	"networkers-home/certificate-portal/certificate-portal-backend/pkg/render"
	"networkers-home/certificate-portal/certificate-portal-backend/pkg/storage"
)

// Sample record rendered into every template thumbnail.
var sampleRecord = map[string]string{
	"student_name":      "John Doe",
	"course_name":       "Sample Course Certificate",
	"issue_date":        "2026-01-01",
	"certificate_id":    "SAMPLE-001",
	"issuing_authority": "NetworkersHome",
	"signature_name":    "Director",
}

func main() {
	once := flag.Bool("once", false, "regenerate thumbnails once and exit")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx := context.Background()

	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "s3":
		backend, err = storage.NewS3Backend(ctx, cfg.Storage.S3)
		if err != nil {
			logger.Fatal("Failed to initialize s3 storage", zap.Error(err))
		}
	default:
		backend, err = storage.NewLocalBackend(cfg.Storage.LocalRoot, cfg.Server.PublicBaseURL)
		if err != nil {
			logger.Fatal("Failed to initialize local storage", zap.Error(err))
		}
	}

	chromium, err := render.NewChromiumRenderer(cfg.Render.ChromiumPath)
	if err != nil {
		logger.Fatal("Failed to launch chromium", zap.Error(err))
	}
	defer chromium.Close()

	worker := &thumbnailWorker{
		repo:     templates.NewRepository(db),
		renderer: certificates.NewRenderer(),
		chromium: chromium,
		raster:   render.NewRasterConverter(),
		backend:  backend,
		logger:   logger,
		dpi:      cfg.Render.PreviewDPI,
	}

	if *once {
		worker.run(ctx)
		return
	}

	c := cron.New()
	if _, err := c.AddFunc("0 3 * * *", func() { worker.run(ctx) }); err != nil {
		logger.Fatal("Failed to schedule thumbnail job", zap.Error(err))
	}
	c.Start()
	logger.Info("Thumbnail worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-c.Stop().Done()
	logger.Info("Thumbnail worker exiting")
}

type thumbnailWorker struct {
	repo     templates.Repository
	renderer *certificates.Renderer
	chromium render.DocumentRenderer
	raster   render.RasterConverter
	backend  storage.Backend
	logger   *zap.Logger
	dpi      int
}

// run regenerates the preview image for every active template. Failures are
// per-template so one broken template cannot stall the rest.
func (w *thumbnailWorker) run(ctx context.Context) {
	active, err := w.repo.ListActive(ctx)
	if err != nil {
		w.logger.Error("Failed to list templates", zap.Error(err))
		return
	}

	for _, tmpl := range active {
		if err := w.regenerate(ctx, tmpl); err != nil {
			w.logger.Error("Failed to regenerate thumbnail",
				zap.String("template", tmpl.Name),
				zap.Error(err))
			continue
		}
		w.logger.Info("Thumbnail regenerated", zap.String("template", tmpl.Name))
	}
}

func (w *thumbnailWorker) regenerate(ctx context.Context, tmpl templates.Template) error {
	markup, err := w.renderer.Render(tmpl.HTMLContent, sampleRecord)
	if err != nil {
		return err
	}
	document, err := w.chromium.RenderDocument(ctx, markup, tmpl.CSSContent)
	if err != nil {
		return err
	}
	preview, err := w.raster.Rasterize(ctx, document, "png", w.dpi)
	if err != nil {
		return err
	}
	relPath, err := w.backend.Save(ctx, preview, "template-preview-"+tmpl.ID.String(), "png")
	if err != nil {
		return err
	}
	url, err := w.backend.DownloadURL(ctx, relPath)
	if err != nil {
		return err
	}
	return w.repo.UpdateThumbnail(ctx, tmpl.ID, url)
}
