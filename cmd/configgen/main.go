package main

import (
	"fmt"

	"github.com/danmuck/eventbridge/internal/config"
	"github.com/danmuck/eventbridge/internal/observability"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

const defaultConfigPath = "cmd/eventbridged/config.toml"

func main() {
	kind := flag.String("kind", "bridge", "config kind: bridge")
	output := flag.String("output", defaultConfigPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultConfigPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	printCfg := flag.Bool("print", false, "print the effective config after validation")
	flag.Parse()

	observability.InitLogger("configgen")
	if *validate {
		cfg, err := config.LoadBridgeConfig(*input)
		if err != nil {
			log.Fatal().Err(err).Str("path", *input).Msg("invalid config")
		}
		log.Info().Str("kind", *kind).Str("path", *input).Msg("validated config")
		if *printCfg {
			out, err := config.Render(cfg)
			if err != nil {
				log.Fatal().Err(err).Msg("render config")
			}
			fmt.Print(out)
		}
		return
	}

	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("kind", *kind).Str("path", *output).Msg("wrote config template")
}
