package main

import (
	"github.com/urfave/cli/v2"
)

var (
	tierFlag = &cli.StringFlag{
		Name:     "tier",
		Usage:    "Code tier: registration, gold, purple, blue or event",
		Required: true,
	}
	fileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "Read one entry per line from `FILE` instead of the arguments",
	}
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of entries to show",
		Value: 20,
	}
	groupFlag = &cli.StringFlag{
		Name:  "group",
		Usage: "Group the request originates from; empty means a private session",
	}
	testFlag = &cli.BoolFlag{
		Name:  "test",
		Usage: "Issue synthetic codes without consuming inventory (defaults to LOTTERY_TEST_MODE)",
	}
)

func (c *controller) loadApp() *cli.App {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "codectl"
	app.Usage = "Administer the code lottery"
	app.Before = c.setup
	app.After = c.teardown
	app.Commands = []*cli.Command{
		{
			Name:     "codes",
			Usage:    "Manage code inventory",
			Category: "Inventory",
			Subcommands: []*cli.Command{
				{
					Name:      "import",
					Usage:     "Add codes to a tier",
					ArgsUsage: "[code...]",
					Flags:     []cli.Flag{tierFlag, fileFlag},
					Action:    c.importCodes,
				},
				{
					Name:      "remove",
					Usage:     "Remove available codes from a tier",
					ArgsUsage: "[code...]",
					Flags:     []cli.Flag{tierFlag, fileFlag},
					Action:    c.removeCodes,
				},
				{
					Name:   "preview",
					Usage:  "Show the next codes of a tier, redacted",
					Flags:  []cli.Flag{tierFlag, limitFlag},
					Action: c.previewCodes,
				},
			},
		},
		{
			Name:     "stats",
			Usage:    "Show pool counts and draw statistics",
			Category: "Reports",
			Action:   c.showStats,
		},
		{
			Name:     "odds",
			Usage:    "Show the effective probability of each lottery tier",
			Category: "Reports",
			Action:   c.showOdds,
		},
		{
			Name:     "history",
			Usage:    "Show recent draws",
			Category: "Reports",
			Flags:    []cli.Flag{limitFlag},
			Action:   c.showHistory,
		},
		{
			Name:     "audit",
			Usage:    "Show the administrative audit trail",
			Category: "Reports",
			Flags: []cli.Flag{
				limitFlag,
				&cli.StringFlag{Name: "user", Usage: "Only entries about this user"},
			},
			Action: c.showAudit,
		},
		{
			Name:      "register",
			Usage:     "Register a user and hand out a registration code",
			Category:  "Users",
			ArgsUsage: "<user-id>",
			Flags:     []cli.Flag{groupFlag, testFlag},
			Action:    c.register,
		},
		{
			Name:      "draw",
			Usage:     "Draw a lottery code for a user",
			Category:  "Users",
			ArgsUsage: "<user-id>",
			Flags:     []cli.Flag{groupFlag, testFlag},
			Action:    c.draw,
		},
		{
			Name:      "verify",
			Usage:     "Check whether a user passes the group membership check",
			Category:  "Users",
			ArgsUsage: "<user-id>",
			Flags:     []cli.Flag{groupFlag},
			Action:    c.verify,
		},
		{
			Name:     "user",
			Usage:    "Inspect and reset user accounts",
			Category: "Users",
			Subcommands: []*cli.Command{
				{
					Name:      "show",
					Usage:     "Show a user account",
					ArgsUsage: "<user-id>",
					Action:    c.showUser,
				},
				{
					Name:      "reset-registration",
					Usage:     "Revoke the registration of a user",
					ArgsUsage: "<user-id>",
					Action:    c.resetRegistration,
				},
				{
					Name:      "reset-lottery",
					Usage:     "Reset the draw counters of a user",
					ArgsUsage: "<user-id>",
					Action:    c.resetLottery,
				},
				{
					Name:      "import",
					Usage:     "Mark users as registered without handing out codes",
					ArgsUsage: "[user-id...]",
					Flags:     []cli.Flag{fileFlag},
					Action:    c.importUsers,
				},
			},
		},
		{
			Name:     "blacklist",
			Usage:    "Manage the blacklist",
			Category: "Users",
			Subcommands: []*cli.Command{
				{Name: "list", Usage: "List blacklisted users", Action: c.listBlacklist},
				{Name: "add", Usage: "Blacklist a user", ArgsUsage: "<user-id>", Action: c.blacklistAdd},
				{Name: "remove", Usage: "Remove a user from the blacklist", ArgsUsage: "<user-id>", Action: c.blacklistRemove},
				{Name: "clear", Usage: "Empty the blacklist", Action: c.blacklistClear},
			},
		},
		{
			Name:     "config",
			Usage:    "Show or change the lottery configuration",
			Category: "Lottery",
			Subcommands: []*cli.Command{
				{Name: "show", Usage: "Show the lottery configuration", Action: c.showConfig},
				{
					Name:  "set",
					Usage: "Change one or more lottery settings",
					Flags: []cli.Flag{
						&cli.IntFlag{Name: "gold", Usage: "Gold weight"},
						&cli.IntFlag{Name: "purple", Usage: "Purple weight"},
						&cli.IntFlag{Name: "blue", Usage: "Blue weight"},
						&cli.IntFlag{Name: "event", Usage: "Event weight"},
						&cli.IntFlag{Name: "pity-threshold", Usage: "Draws without the pity tier before it is forced"},
						&cli.StringFlag{Name: "pity-tier", Usage: "Tier forced by the pity rule"},
						&cli.IntFlag{Name: "weekly-limit", Usage: "Draws per user per week, 0 for unlimited"},
						&cli.IntFlag{Name: "daily-limit", Usage: "Draws per user per day, 0 for unlimited"},
					},
					Action: c.setConfig,
				},
			},
		},
		{
			Name:     "event",
			Usage:    "Open or close the event pool",
			Category: "Lottery",
			Subcommands: []*cli.Command{
				{
					Name:      "open",
					Usage:     "Enable the event pool",
					ArgsUsage: "<name>",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "expires", Usage: "Deadline, RFC3339 or YYYY-MM-DD (end of day)"},
					},
					Action: c.openEvent,
				},
				{Name: "close", Usage: "Disable the event pool", Action: c.closeEvent},
			},
		},
		{
			Name:     "announce",
			Usage:    "Manage the announcement",
			Category: "Lottery",
			Subcommands: []*cli.Command{
				{Name: "show", Usage: "Show the announcement", Action: c.showAnnouncement},
				{Name: "set", Usage: "Set the announcement", ArgsUsage: "<text>", Action: c.setAnnouncement},
				{Name: "clear", Usage: "Remove the announcement", Action: c.clearAnnouncement},
			},
		},
		{
			Name:        "weekly-reset",
			Usage:       "Reset every weekly draw counter now",
			Category:    "Lottery",
			Description: `Runs the same reset the daemon performs every Monday at midnight.`,
			Action:      c.weeklyReset,
		},
	}
	return app
}
