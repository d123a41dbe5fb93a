package main

import (
	"errors"
	"fmt"
	"strings"

	"code-lottery-go/internal/common"
	"code-lottery-go/internal/config"
	"code-lottery-go/internal/models"
	"code-lottery-go/internal/store"

	"github.com/urfave/cli/v2"
)

// controller opens the services on first use so that help output never
// touches the state file.
type controller struct {
	cfg      *models.Config
	services *common.Services
}

func (c *controller) setup(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *controller) teardown(cctx *cli.Context) error {
	if c.services != nil {
		c.services.Close(cctx.Context)
		c.services = nil
	}
	return nil
}

func (c *controller) open(cctx *cli.Context) (*common.Services, error) {
	if c.services != nil {
		return c.services, nil
	}
	services, err := common.InitializeServices(cctx.Context, c.cfg)
	if errors.Is(err, store.ErrLocked) {
		return nil, fmt.Errorf("%w (codectl works offline, stop lotteryd first)", err)
	}
	if err != nil {
		return nil, err
	}
	c.services = services
	return services, nil
}

// userArg returns the single positional user id.
func userArg(cctx *cli.Context) (string, error) {
	if cctx.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one user id, got %d arguments", cctx.NArg())
	}
	user := strings.TrimSpace(cctx.Args().First())
	if user == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}
	return user, nil
}

func tierArg(cctx *cli.Context) (models.Tier, error) {
	return models.ParseTier(cctx.String("tier"))
}

// testMode resolves --test against the configured default.
func (c *controller) testMode(cctx *cli.Context) bool {
	if cctx.IsSet("test") {
		return cctx.Bool("test")
	}
	return c.cfg.Lottery.TestMode
}
