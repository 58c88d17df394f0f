package main

import (
	"fmt"
	"net/url"

	"github.com/arkade-os/bridged/internal/interface/http/middleware"
	"github.com/urfave/cli/v2"
)

var (
	tokenCmd = &cli.Command{
		Name:   "token",
		Usage:  "Mint a bearer token for the admin api",
		Flags:  []cli.Flag{secretFlag, subjectFlag, ttlFlag},
		Action: tokenAction,
	}
	protocolsCmd = &cli.Command{
		Name:  "protocols",
		Usage: "Manage bridge protocols",
		Subcommands: cli.Commands{
			{
				Name:   "list",
				Usage:  "List registered protocols",
				Flags:  []cli.Flag{urlFlag, tokenFlag},
				Action: listProtocolsAction,
			},
			{
				Name:   "add",
				Usage:  "Register a protocol",
				Flags:  []cli.Flag{urlFlag, tokenFlag, nameFlag, feeBpsFlag, expectedTimeFlag},
				Action: addProtocolAction,
			},
		},
	}
	routesCmd = &cli.Command{
		Name:  "routes",
		Usage: "Manage bridge routes",
		Subcommands: cli.Commands{
			{
				Name:   "list",
				Usage:  "List registered routes",
				Flags:  []cli.Flag{urlFlag, tokenFlag},
				Action: listRoutesAction,
			},
			{
				Name:  "add",
				Usage: "Register or update a route",
				Flags: []cli.Flag{
					urlFlag, tokenFlag, sourceFlag, destinationFlag, protocolFlag,
					baseFeeFlag, gasBudgetFlag, dailyCapFlag,
				},
				Action: addRouteAction,
			},
			{
				Name:   "deactivate",
				Usage:  "Deactivate a route",
				Flags:  []cli.Flag{urlFlag, tokenFlag, sourceFlag, destinationFlag, protocolFlag},
				Action: deactivateRouteAction,
			},
			{
				Name:   "capacity",
				Usage:  "Show the remaining daily capacity of a route",
				Flags:  []cli.Flag{urlFlag, tokenFlag, sourceFlag, destinationFlag, protocolFlag},
				Action: routeCapacityAction,
			},
		},
	}
	assetsCmd = &cli.Command{
		Name:  "assets",
		Usage: "Manage settlement assets",
		Subcommands: cli.Commands{
			{
				Name:   "list",
				Usage:  "List settlement assets",
				Flags:  []cli.Flag{urlFlag, tokenFlag},
				Action: listAssetsAction,
			},
			{
				Name:  "add",
				Usage: "Register a settlement asset",
				Flags: []cli.Flag{
					urlFlag, tokenFlag, refFlag, categoryFlag, jurisdictionFlag,
					dailyCapFlag, preferredFlag,
				},
				Action: addAssetAction,
			},
			{
				Name:   "deactivate",
				Usage:  "Deactivate a settlement asset",
				Flags:  []cli.Flag{urlFlag, tokenFlag, refFlag},
				Action: deactivateAssetAction,
			},
		},
	}
	preferencesCmd = &cli.Command{
		Name:  "preferences",
		Usage: "Manage per-jurisdiction settlement preferences",
		Subcommands: cli.Commands{
			{
				Name:   "get",
				Usage:  "Show the preferences of a jurisdiction",
				Flags:  []cli.Flag{urlFlag, tokenFlag, jurisdictionFlag},
				Action: getPreferencesAction,
			},
			{
				Name:   "set",
				Usage:  "Replace the preferences of a jurisdiction",
				Flags:  []cli.Flag{urlFlag, tokenFlag, jurisdictionFlag, assetsFlag},
				Action: setPreferencesAction,
			},
		},
	}
	statsCmd = &cli.Command{
		Name:   "stats",
		Usage:  "Show protocol performance stats",
		Flags:  []cli.Flag{urlFlag, tokenFlag},
		Action: statsAction,
	}
	chainsCmd = &cli.Command{
		Name:   "chains",
		Usage:  "Show the known chains and their data-format capabilities",
		Flags:  []cli.Flag{urlFlag, tokenFlag},
		Action: chainsAction,
	}
	transfersCmd = &cli.Command{
		Name:  "transfers",
		Usage: "Inspect transfers",
		Subcommands: cli.Commands{
			{
				Name:   "list",
				Usage:  "List transfers, optionally filtered by status",
				Flags:  []cli.Flag{urlFlag, tokenFlag, statusFlag},
				Action: listTransfersAction,
			},
			{
				Name:   "events",
				Usage:  "Show the event history of a transfer",
				Flags:  []cli.Flag{urlFlag, tokenFlag, idFlag},
				Action: transferEventsAction,
			},
		},
	}
	feeProgramCmd = &cli.Command{
		Name:  "fee-program",
		Usage: "Manage the protocol fee program",
		Subcommands: cli.Commands{
			{
				Name:   "get",
				Usage:  "Show the active fee program",
				Flags:  []cli.Flag{urlFlag, tokenFlag},
				Action: getFeeProgramAction,
			},
			{
				Name:   "set",
				Usage:  "Replace the fee program",
				Flags:  []cli.Flag{urlFlag, tokenFlag, programFlag},
				Action: setFeeProgramAction,
			},
		},
	}
)

func tokenAction(ctx *cli.Context) error {
	secret := fromEnv(ctx.String(secretFlagName), secretFlagName)
	if secret == "" {
		return fmt.Errorf("missing admin jwt secret")
	}
	token, err := middleware.NewAdminToken(
		[]byte(secret), ctx.String(subjectFlagName), ctx.Duration(ttlFlagName),
	)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func listProtocolsAction(ctx *cli.Context) error {
	return newAdminClient(ctx).get("/protocols", nil)
}

func addProtocolAction(ctx *cli.Context) error {
	return newAdminClient(ctx).post("/protocols", map[string]any{
		"name":         ctx.String(nameFlagName),
		"feeBps":       ctx.Uint(feeBpsFlagName),
		"expectedTime": int64(ctx.Duration(expectedTimeFlagName).Seconds()),
	})
}

func listRoutesAction(ctx *cli.Context) error {
	return newAdminClient(ctx).get("/routes", nil)
}

func addRouteAction(ctx *cli.Context) error {
	return newAdminClient(ctx).post("/routes", map[string]any{
		"source":               ctx.String(sourceFlagName),
		"destination":          ctx.String(destinationFlagName),
		"protocol":             ctx.String(protocolFlagName),
		"baseFee":              ctx.Uint64(baseFeeFlagName),
		"destinationGasBudget": ctx.Uint64(gasBudgetFlagName),
		"dailyCap":             ctx.Uint64(dailyCapFlagName),
	})
}

func deactivateRouteAction(ctx *cli.Context) error {
	return newAdminClient(ctx).post("/routes/deactivate", routeKeyFromFlags(ctx))
}

func routeCapacityAction(ctx *cli.Context) error {
	query := url.Values{}
	for key, value := range routeKeyFromFlags(ctx) {
		query.Set(key, value)
	}
	return newAdminClient(ctx).get("/routes/capacity", query)
}

func routeKeyFromFlags(ctx *cli.Context) map[string]string {
	return map[string]string{
		"source":      ctx.String(sourceFlagName),
		"destination": ctx.String(destinationFlagName),
		"protocol":    ctx.String(protocolFlagName),
	}
}

func listAssetsAction(ctx *cli.Context) error {
	return newAdminClient(ctx).get("/assets", nil)
}

func addAssetAction(ctx *cli.Context) error {
	return newAdminClient(ctx).post("/assets", map[string]any{
		"ref":          ctx.String(refFlagName),
		"category":     ctx.String(categoryFlagName),
		"jurisdiction": ctx.String(jurisdictionFlagName),
		"dailyCap":     ctx.Uint64(dailyCapFlagName),
		"preferred":    ctx.Bool(preferredFlagName),
	})
}

func deactivateAssetAction(ctx *cli.Context) error {
	ref := url.PathEscape(ctx.String(refFlagName))
	return newAdminClient(ctx).post(fmt.Sprintf("/assets/%s/deactivate", ref), nil)
}

func getPreferencesAction(ctx *cli.Context) error {
	jurisdiction := url.PathEscape(ctx.String(jurisdictionFlagName))
	return newAdminClient(ctx).get(
		fmt.Sprintf("/jurisdictions/%s/preferences", jurisdiction), nil,
	)
}

func setPreferencesAction(ctx *cli.Context) error {
	jurisdiction := ctx.String(jurisdictionFlagName)
	return newAdminClient(ctx).put(
		fmt.Sprintf("/jurisdictions/%s/preferences", url.PathEscape(jurisdiction)),
		map[string]any{
			"jurisdiction": jurisdiction,
			"preferences":  ctx.StringSlice(assetsFlagName),
		},
	)
}

func statsAction(ctx *cli.Context) error {
	return newAdminClient(ctx).get("/stats", nil)
}

func chainsAction(ctx *cli.Context) error {
	return newAdminClient(ctx).get("/chains", nil)
}

func listTransfersAction(ctx *cli.Context) error {
	query := url.Values{}
	for _, status := range ctx.StringSlice(statusFlagName) {
		query.Add("status", status)
	}
	return newAdminClient(ctx).get("/transfers", query)
}

func transferEventsAction(ctx *cli.Context) error {
	id := url.PathEscape(ctx.String(idFlagName))
	return newAdminClient(ctx).get(fmt.Sprintf("/transfers/%s/events", id), nil)
}

func getFeeProgramAction(ctx *cli.Context) error {
	return newAdminClient(ctx).get("/fee-program", nil)
}

func setFeeProgramAction(ctx *cli.Context) error {
	return newAdminClient(ctx).put("/fee-program", map[string]string{
		"program": ctx.String(programFlagName),
	})
}
