// cmd/tools/content-seeder/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"botforge/internal/chatbot/quickreplies"
	"botforge/internal/chatbot/store"
	"botforge/internal/common/config"
	"botforge/internal/common/database"
	"botforge/internal/common/logger"
	"botforge/pkg/registry"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	showCmd := flag.NewFlagSet("show", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)

	validatePath := validateCmd.String("pack", "configs/content.yaml", "Path to the content pack")

	seedPath := seedCmd.String("pack", "configs/content.yaml", "Path to the content pack")
	seedConfig := seedCmd.String("config", "", "Config file (defaults to configs/config.yaml lookup)")
	withDefaults := seedCmd.Bool("with-defaults", true, "Merge the pack over the built-in defaults before seeding")

	showPath := showCmd.String("pack", "", "Path to the content pack (empty shows the built-in defaults)")

	exportPath := exportCmd.String("pack", "", "Path to the content pack merged over the defaults")
	exportOut := exportCmd.String("out", "build/content.json", "Output file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		pack, err := registry.LoadPack(*validatePath)
		if err != nil {
			fail("Content pack validation failed: %v", err)
		}
		if _, err := quickreplies.NewResolver(logger.NewNoOpLogger(), pack.Exclusions); err != nil {
			fail("Content pack validation failed: %v", err)
		}
		color.New(color.FgGreen).Printf("Content pack %s is valid: ", *validatePath)
		fmt.Printf("%d organisations, %d templates, %d quick reply sets, %d keyword rules\n",
			len(pack.Organisations), len(pack.Templates), len(pack.QuickReplies), len(pack.Keywords))

	case "seed":
		_ = seedCmd.Parse(os.Args[2:])
		if err := seed(*seedConfig, *seedPath, *withDefaults); err != nil {
			fail("Seeding failed: %v", err)
		}

	case "show":
		_ = showCmd.Parse(os.Args[2:])
		pack, err := packOrDefaults(*showPath)
		if err != nil {
			fail("Failed to load content pack: %v", err)
		}
		show(pack)

	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		pack, err := packOrDefaults(*exportPath)
		if err != nil {
			fail("Failed to load content pack: %v", err)
		}
		if err := writePack(pack, *exportOut); err != nil {
			fail("Export failed: %v", err)
		}
		fmt.Printf("Exported content pack to %s\n", *exportOut)

	case "help":
		fallthrough
	default:
		help()
	}
}

func seed(configPath, packPath string, withDefaults bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver == "memory" {
		return fmt.Errorf("database.driver is memory; nothing to seed")
	}

	pack, err := registry.LoadPack(packPath)
	if err != nil {
		return err
	}
	if withDefaults {
		pack = registry.Merge(registry.DefaultPack(), pack)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sqlStore := store.NewSQLStore(db, log)
	if err := sqlStore.Migrate(ctx); err != nil {
		return err
	}

	start := time.Now()
	if err := sqlStore.ReplaceContent(ctx, pack); err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("Seeded %s content store ", cfg.Database.Driver)
	fmt.Printf("(%d organisations, %d templates, %d quick reply sets) in %s\n",
		len(pack.Organisations), len(pack.Templates), len(pack.QuickReplies), time.Since(start).Round(time.Millisecond))
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func packOrDefaults(path string) (*registry.ContentPack, error) {
	if path == "" {
		return registry.DefaultPack(), nil
	}
	pack, err := registry.LoadPack(path)
	if err != nil {
		return nil, err
	}
	return registry.Merge(registry.DefaultPack(), pack), nil
}

func show(pack *registry.ContentPack) {
	cyan := color.New(color.FgCyan)

	cyan.Printf("Content pack %s\n\n", pack.Version)

	orgs := tablewriter.NewWriter(os.Stdout)
	orgs.SetHeader([]string{"ID", "Name", "Industry", "Language", "Attributes"})
	orgs.SetAutoWrapText(false)
	orgs.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	orgs.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, org := range pack.Organisations {
		orgs.Append([]string{
			strconv.FormatInt(org.ID, 10),
			org.Name,
			org.Industry,
			org.PrimaryLanguage,
			strconv.Itoa(len(org.Attributes)),
		})
	}
	orgs.Render()
	fmt.Println()

	counts := make(map[string]int)
	for _, t := range pack.Templates {
		scope := t.Industry
		if t.OrganisationID != nil {
			scope = "org:" + strconv.FormatInt(*t.OrganisationID, 10)
		}
		counts[scope]++
	}
	scopes := make([]string, 0, len(counts))
	for scope := range counts {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	templates := tablewriter.NewWriter(os.Stdout)
	templates.SetHeader([]string{"Template scope", "Intents"})
	templates.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	templates.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, scope := range scopes {
		templates.Append([]string{scope, strconv.Itoa(counts[scope])})
	}
	templates.Render()
	fmt.Println()

	rules := tablewriter.NewWriter(os.Stdout)
	rules.SetHeader([]string{"Intent", "Keywords"})
	rules.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	rules.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, rule := range pack.Keywords {
		rules.Append([]string{rule.Intent, strconv.Itoa(len(rule.Keywords))})
	}
	rules.Render()
}

func writePack(pack *registry.ContentPack, path string) error {
	data, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal content pack: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write content pack: %w", err)
	}
	return nil
}

func fail(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func help() {
	fmt.Print(`
Usage: content-seeder <command> [flags]

Commands:
  validate  Validate a content pack against the pack schema
  seed      Migrate the SQL content store and replace its content with a pack
  show      Summarise a content pack (or the built-in defaults)
  export    Write a pack merged over the defaults as JSON
  help      Show this help message

Examples:
  content-seeder validate -pack configs/content.yaml
  content-seeder seed -pack configs/content.yaml -config configs/config.yaml
  content-seeder show
  content-seeder export -pack configs/content.yaml -out build/content.json

Use 'content-seeder <command> -h' for more information about a command.
`)
}
