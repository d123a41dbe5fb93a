package main

import (
	"fmt"
	"strings"
	"time"

	"code-lottery-go/internal/common"
	"code-lottery-go/internal/filestore"
	"code-lottery-go/internal/models"

	"github.com/urfave/cli/v2"
)

func (c *controller) importCodes(cctx *cli.Context) error {
	tier, err := tierArg(cctx)
	if err != nil {
		return err
	}
	codes, err := collectEntries(cctx.String("file"), cctx.Args().Slice())
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	res, err := s.Coordinator.AddCodes(cctx.Context, tier, codes)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d %s codes, skipped %d duplicates\n", res.Added, tier, res.Skipped)
	return nil
}

func (c *controller) removeCodes(cctx *cli.Context) error {
	tier, err := tierArg(cctx)
	if err != nil {
		return err
	}
	codes, err := collectEntries(cctx.String("file"), cctx.Args().Slice())
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	res, err := s.Coordinator.RemoveCodes(cctx.Context, tier, codes)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d %s codes, %d not found\n", res.Removed, tier, res.NotFound)
	return nil
}

func (c *controller) previewCodes(cctx *cli.Context) error {
	tier, err := tierArg(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	codes, err := s.Coordinator.CodesPreview(tier, cctx.Int("limit"))
	if err != nil {
		return err
	}
	common.PrintHeader(fmt.Sprintf("Next %s codes (%d available)", tier, s.Coordinator.PoolCounts().Of(tier)), common.DefaultWidth)
	for i, code := range codes {
		fmt.Printf("%s%s\n", common.BoxPrefix(i == len(codes)-1), code)
	}
	return nil
}

func (c *controller) showStats(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	stats := s.Coordinator.Statistics()
	common.PrintHeader("Lottery statistics", common.DefaultWidth)
	fmt.Printf("Registered users:      %d\n", stats.RegisteredUsers)
	fmt.Printf("Registration codes:    %d available, %d used\n", stats.RegistrationAvailable, stats.RegistrationUsed)
	fmt.Printf("Blacklisted users:     %d\n", stats.BlacklistCount)
	fmt.Printf("Total draws:           %d\n", stats.TotalDraws)

	fmt.Println("\nPools:")
	for i, tier := range models.LotteryTiers {
		suffix := ""
		if tier == models.TierEvent && !stats.Pools.EventActive {
			suffix = " (inactive)"
		}
		fmt.Printf("%s%-8s %6d available, %6d drawn%s\n",
			common.BoxPrefix(i == len(models.LotteryTiers)-1),
			tier, stats.Pools.Of(tier), stats.DrawsByTier[tier], suffix)
	}

	actions, err := s.Audit.CountByAction(cctx.Context)
	if err != nil {
		return fmt.Errorf("failed to count audit entries: %w", err)
	}
	if len(actions) > 0 {
		fmt.Println("\nAudited actions:")
		for action, n := range actions {
			fmt.Printf("   %-22s %d\n", action, n)
		}
	}
	return nil
}

func (c *controller) showOdds(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	odds := s.Coordinator.PoolOdds()
	common.PrintHeader("Current odds", common.DefaultWidth)
	for i, o := range odds {
		fmt.Printf("%s%-8s weight %4d  stock %6d  %s%%\n",
			common.BoxPrefix(i == len(odds)-1), o.Tier, o.Weight, o.Stock, o.Percent.StringFixed(2))
	}
	return nil
}

func (c *controller) showHistory(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	entries := s.Coordinator.History(cctx.Int("limit"))
	if len(entries) == 0 {
		fmt.Println("No draws yet")
		return nil
	}
	common.PrintHeader(fmt.Sprintf("Last %d draws", len(entries)), common.WideWidth)
	for i, e := range entries {
		fmt.Printf("%s%s  %-8s  %-20s  %s\n",
			common.BoxPrefix(i == len(entries)-1), common.FormatTime(e.Time), e.Tier, e.UserID, e.CodeDigest)
	}
	return nil
}

func (c *controller) showAudit(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	var entries []models.AuditEntry
	if user := cctx.String("user"); user != "" {
		entries, err = s.Audit.ForUser(cctx.Context, user, cctx.Int("limit"))
	} else {
		entries, err = s.Coordinator.AuditTrail(cctx.Context, cctx.Int("limit"))
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No audit entries")
		return nil
	}
	common.PrintHeader("Audit trail", common.WideWidth)
	for i, e := range entries {
		fmt.Printf("%s%s  %-20s  %-20s  %s\n",
			common.BoxPrefix(i == len(entries)-1), common.FormatTime(e.Time), e.Action, e.UserID, e.Detail)
	}
	return nil
}

func (c *controller) register(cctx *cli.Context) error {
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	if decision := s.Verifier.Check(user, cctx.String("group")); !decision.Allowed {
		fmt.Printf("Registration denied for %s: %s\n", user, decision.Method)
		return nil
	}

	res, err := s.Coordinator.RegisterUser(cctx.Context, user, c.testMode(cctx))
	if err != nil {
		return err
	}
	switch res.Status {
	case models.StatusSuccess:
		fmt.Printf("Registered %s with code %s\n", user, res.Code)
	case models.StatusAlreadyRegistered:
		fmt.Printf("%s is already registered (code %s)\n", user, models.RedactCode(res.Code))
	default:
		fmt.Printf("Registration failed for %s: %s\n", user, res.Status)
	}
	return nil
}

func (c *controller) draw(cctx *cli.Context) error {
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	if decision := s.Verifier.Check(user, cctx.String("group")); !decision.Allowed {
		fmt.Printf("Draw denied for %s: %s\n", user, decision.Method)
		return nil
	}

	res, err := s.Coordinator.DrawLottery(cctx.Context, user, c.testMode(cctx))
	if err != nil {
		return err
	}
	if !res.Success {
		fmt.Printf("Draw failed for %s: %s\n", user, res.Status)
		return nil
	}
	pity := ""
	if res.PityTriggered {
		pity = " (pity)"
	}
	fmt.Printf("%s drew a %s code%s: %s\n", user, res.Tier, pity, res.Code)
	return nil
}

func (c *controller) verify(cctx *cli.Context) error {
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	decision := s.Verifier.Check(user, cctx.String("group"))
	fmt.Printf("Allowed:   %t\n", decision.Allowed)
	fmt.Printf("Method:    %s\n", decision.Method)
	if decision.Group != "" {
		fmt.Printf("Group:     %s\n", decision.Group)
	}
	fmt.Printf("Draw now:  %s\n", s.Coordinator.CanDraw(user))
	return nil
}

func (c *controller) showUser(cctx *cli.Context) error {
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	acct, ok := s.Coordinator.User(user)
	if !ok {
		fmt.Printf("No account for %s\n", user)
		return nil
	}

	code := "none"
	if acct.RegistrationCode != nil {
		code = models.RedactCode(*acct.RegistrationCode)
	}
	fmt.Printf("\n┌─ User: %s\n", user)
	fmt.Printf("│  Registered:    %t (code %s, at %s)\n", acct.Registered, code, common.FormatTimePtr(acct.RegisteredAt))
	fmt.Printf("│  Blacklisted:   %t\n", s.Coordinator.IsBlacklisted(user))
	fmt.Printf("│  Draws:         %d total, %d this week, %d today\n", acct.TotalDraws, acct.WeekDraws, acct.DayDraws)
	fmt.Printf("│  Pity counter:  %d\n", acct.PityCounter)
	fmt.Printf("└  Last draw:     %s\n", common.FormatTimePtr(acct.LastDrawAt))
	return nil
}

func (c *controller) resetRegistration(cctx *cli.Context) error {
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	if err := s.Coordinator.ResetUserRegistration(cctx.Context, user); err != nil {
		return err
	}
	fmt.Printf("Registration of %s revoked\n", user)
	return nil
}

func (c *controller) resetLottery(cctx *cli.Context) error {
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	if err := s.Coordinator.ResetUserLottery(cctx.Context, user); err != nil {
		return err
	}
	fmt.Printf("Draw counters of %s reset\n", user)
	return nil
}

func (c *controller) importUsers(cctx *cli.Context) error {
	users, err := collectEntries(cctx.String("file"), cctx.Args().Slice())
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	res, err := s.Coordinator.ImportRegisteredUsers(cctx.Context, users)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d users, skipped %d\n", res.Added, res.Skipped)
	return nil
}

func (c *controller) listBlacklist(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	ids := s.Coordinator.Blacklist()
	if len(ids) == 0 {
		fmt.Println("Blacklist is empty")
		return nil
	}
	for i, id := range ids {
		fmt.Printf("%s%s\n", common.BoxPrefix(i == len(ids)-1), id)
	}
	return nil
}

func (c *controller) blacklistAdd(cctx *cli.Context) error {
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	added, err := s.Coordinator.BlacklistAdd(cctx.Context, user)
	if err != nil {
		return err
	}
	if !added {
		fmt.Printf("%s is already blacklisted\n", user)
		return nil
	}
	fmt.Printf("%s blacklisted\n", user)
	return nil
}

func (c *controller) blacklistRemove(cctx *cli.Context) error {
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	removed, err := s.Coordinator.BlacklistRemove(cctx.Context, user)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("%s was not blacklisted\n", user)
		return nil
	}
	fmt.Printf("%s removed from the blacklist\n", user)
	return nil
}

func (c *controller) blacklistClear(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	n, err := s.Coordinator.BlacklistClear(cctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d users from the blacklist\n", n)
	return nil
}

func (c *controller) showConfig(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}
	printConfig(s.Coordinator.LotteryConfig())
	return nil
}

func (c *controller) setConfig(cctx *cli.Context) error {
	update, err := configUpdate(cctx)
	if err != nil {
		return err
	}
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	cfg, err := s.Coordinator.UpdateLotteryConfig(cctx.Context, update)
	if err != nil {
		return err
	}
	printConfig(*cfg)
	return nil
}

// configUpdate builds an update holding only the flags given on the command
// line.
func configUpdate(cctx *cli.Context) (models.LotteryConfigUpdate, error) {
	var u models.LotteryConfigUpdate
	intFlag := func(name string) *int {
		if !cctx.IsSet(name) {
			return nil
		}
		v := cctx.Int(name)
		return &v
	}
	u.GoldWeight = intFlag("gold")
	u.PurpleWeight = intFlag("purple")
	u.BlueWeight = intFlag("blue")
	u.EventWeight = intFlag("event")
	u.PityThreshold = intFlag("pity-threshold")
	u.WeeklyLimit = intFlag("weekly-limit")
	u.DailyLimit = intFlag("daily-limit")
	if cctx.IsSet("pity-tier") {
		tier, err := models.ParseTier(cctx.String("pity-tier"))
		if err != nil {
			return u, err
		}
		u.PityTier = &tier
	}
	return u, nil
}

func printConfig(cfg models.LotteryConfig) {
	common.PrintHeader("Lottery configuration", common.DefaultWidth)
	fmt.Printf("Weights:         gold %d, purple %d, blue %d, event %d\n",
		cfg.Weights.Gold, cfg.Weights.Purple, cfg.Weights.Blue, cfg.Weights.Event)
	fmt.Printf("Pity:            %s after %d draws\n", cfg.PityTier, cfg.PityThreshold)
	fmt.Printf("Weekly limit:    %s\n", common.FormatLimit(cfg.WeeklyLimit))
	fmt.Printf("Daily limit:     %s\n", common.FormatLimit(cfg.DailyLimit))

	event := "disabled"
	if cfg.EventPool.Enabled {
		event = fmt.Sprintf("%q until %s", cfg.EventPool.Name, common.FormatTimePtr(cfg.EventPool.ExpiresAt))
		if cfg.EventPool.ExpiresAt == nil {
			event = fmt.Sprintf("%q with no deadline", cfg.EventPool.Name)
		}
	}
	fmt.Printf("Event pool:      %s\n", event)
}

func (c *controller) openEvent(cctx *cli.Context) error {
	name := strings.TrimSpace(strings.Join(cctx.Args().Slice(), " "))
	if name == "" {
		return fmt.Errorf("event name is required")
	}

	var expiresAt *time.Time
	if raw := cctx.String("expires"); raw != "" {
		t, err := filestore.ParseEventExpiry(raw)
		if err != nil {
			return err
		}
		expiresAt = &t
	}

	s, err := c.open(cctx)
	if err != nil {
		return err
	}
	if err := s.Coordinator.SetEventPool(cctx.Context, name, expiresAt); err != nil {
		return err
	}
	fmt.Printf("Event pool %q opened\n", name)
	return nil
}

func (c *controller) closeEvent(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}
	if err := s.Coordinator.DisableEventPool(cctx.Context); err != nil {
		return err
	}
	fmt.Println("Event pool closed")
	return nil
}

func (c *controller) showAnnouncement(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	a := s.Coordinator.Announcement()
	if a == nil {
		fmt.Println("No announcement")
		return nil
	}
	fmt.Printf("Updated %s\n\n%s\n", common.FormatTimePtr(a.UpdatedAt), a.Content)
	return nil
}

func (c *controller) setAnnouncement(cctx *cli.Context) error {
	content := strings.Join(cctx.Args().Slice(), " ")
	s, err := c.open(cctx)
	if err != nil {
		return err
	}
	if err := s.Coordinator.SetAnnouncement(cctx.Context, content); err != nil {
		return err
	}
	fmt.Println("Announcement updated")
	return nil
}

func (c *controller) clearAnnouncement(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	cleared, err := s.Coordinator.ClearAnnouncement(cctx.Context)
	if err != nil {
		return err
	}
	if !cleared {
		fmt.Println("No announcement to clear")
		return nil
	}
	fmt.Println("Announcement cleared")
	return nil
}

func (c *controller) weeklyReset(cctx *cli.Context) error {
	s, err := c.open(cctx)
	if err != nil {
		return err
	}

	n, err := s.Coordinator.WeeklyReset(cctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Weekly counters reset for %d users\n", n)
	return nil
}
