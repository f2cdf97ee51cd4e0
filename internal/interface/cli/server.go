package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/dev-onboard/internal/interface/httpapi"
)

const shutdownTimeout = 10 * time.Second

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	port := int(cmd.Int("port"))
	if port == 0 {
		port = appCtx.Config.HTTPPort
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", port),
		Handler: httpapi.NewRouter(httpapi.Dependencies{
			Logger:   appCtx.Logger,
			Analyses: appCtx.Container.Analyses,
			Progress: appCtx.Container.Progress,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appCtx.Logger.Info("HTTPサーバを起動しました", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバが停止しました: %w", err)
	case <-ctx.Done():
	}

	appCtx.Logger.Info("HTTPサーバを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバの停止に失敗: %w", err)
	}
	return nil
}
