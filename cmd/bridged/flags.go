package main

import (
	"fmt"
	"time"

	"github.com/arkade-os/bridged/internal/config"
	"github.com/urfave/cli/v2"
)

const (
	urlFlagName          = "url"
	tokenFlagName        = "token"
	secretFlagName       = "admin-jwt-secret"
	subjectFlagName      = "subject"
	ttlFlagName          = "ttl"
	nameFlagName         = "name"
	feeBpsFlagName       = "fee-bps"
	expectedTimeFlagName = "expected-time"
	sourceFlagName       = "source"
	destinationFlagName  = "destination"
	protocolFlagName     = "protocol"
	baseFeeFlagName      = "base-fee"
	gasBudgetFlagName    = "gas-budget"
	dailyCapFlagName     = "daily-cap"
	refFlagName          = "ref"
	categoryFlagName     = "category"
	jurisdictionFlagName = "jurisdiction"
	preferredFlagName    = "preferred"
	assetsFlagName       = "assets"
	statusFlagName       = "status"
	idFlagName           = "id"
	programFlagName      = "program"

	timeout = 15 * time.Second
)

var (
	urlFlag = &cli.StringFlag{
		Name:  urlFlagName,
		Usage: "the url where to reach the bridged admin api",
		Value: fmt.Sprintf("http://127.0.0.1:%d", config.DefaultAdminPort),
	}
	tokenFlag = &cli.StringFlag{
		Name:  tokenFlagName,
		Usage: "admin bearer token, defaults to BRIDGED_TOKEN",
	}
	secretFlag = &cli.StringFlag{
		Name:  secretFlagName,
		Usage: "secret used to sign admin tokens, defaults to BRIDGED_ADMIN_JWT_SECRET",
	}
	subjectFlag = &cli.StringFlag{
		Name:  subjectFlagName,
		Usage: "the operator the token is issued to",
		Value: "operator",
	}
	ttlFlag = &cli.DurationFlag{
		Name:  ttlFlagName,
		Usage: "validity of the token",
		Value: 24 * time.Hour,
	}
	nameFlag = &cli.StringFlag{
		Name:     nameFlagName,
		Usage:    "name of the protocol",
		Required: true,
	}
	feeBpsFlag = &cli.UintFlag{
		Name:     feeBpsFlagName,
		Usage:    "protocol fee in basis points",
		Required: true,
	}
	expectedTimeFlag = &cli.DurationFlag{
		Name:     expectedTimeFlagName,
		Usage:    "expected completion time of a transfer through the protocol",
		Required: true,
	}
	sourceFlag = &cli.StringFlag{
		Name:     sourceFlagName,
		Usage:    "source chain",
		Required: true,
	}
	destinationFlag = &cli.StringFlag{
		Name:     destinationFlagName,
		Usage:    "destination chain",
		Required: true,
	}
	protocolFlag = &cli.StringFlag{
		Name:     protocolFlagName,
		Usage:    "bridge protocol",
		Required: true,
	}
	baseFeeFlag = &cli.Uint64Flag{
		Name:  baseFeeFlagName,
		Usage: "flat fee charged on the route",
	}
	gasBudgetFlag = &cli.Uint64Flag{
		Name:  gasBudgetFlagName,
		Usage: "gas budget reserved on the destination chain",
	}
	dailyCapFlag = &cli.Uint64Flag{
		Name:     dailyCapFlagName,
		Usage:    "daily volume cap",
		Required: true,
	}
	refFlag = &cli.StringFlag{
		Name:     refFlagName,
		Usage:    "settlement asset reference",
		Required: true,
	}
	categoryFlag = &cli.StringFlag{
		Name:     categoryFlagName,
		Usage:    "settlement asset category",
		Required: true,
	}
	jurisdictionFlag = &cli.StringFlag{
		Name:     jurisdictionFlagName,
		Usage:    "jurisdiction code",
		Required: true,
	}
	preferredFlag = &cli.BoolFlag{
		Name:  preferredFlagName,
		Usage: "prefer the asset within its jurisdiction",
	}
	assetsFlag = &cli.StringSliceFlag{
		Name:     assetsFlagName,
		Usage:    "ordered list of preferred settlement assets",
		Required: true,
	}
	statusFlag = &cli.StringSliceFlag{
		Name:  statusFlagName,
		Usage: "filter transfers by status",
	}
	idFlag = &cli.StringFlag{
		Name:     idFlagName,
		Usage:    "transfer id",
		Required: true,
	}
	programFlag = &cli.StringFlag{
		Name:     programFlagName,
		Usage:    "CEL expression computing the protocol fee",
		Required: true,
	}
)
