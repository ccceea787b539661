package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kass/airport-search/pkg/airports"
	"github.com/kass/airport-search/pkg/cloudant"
	"github.com/kass/airport-search/pkg/models"
	"github.com/kass/airport-search/pkg/postgis"
	"github.com/kass/airport-search/pkg/rtree"
)

// Config structure for YAML configuration
type Config struct {
	Backend  string `yaml:"backend"`
	Cloudant struct {
		URL       string `yaml:"url"`
		Database  string `yaml:"database"`
		DesignDoc string `yaml:"design_doc"`
		Index     string `yaml:"index"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
	} `yaml:"cloudant"`
	PostGIS struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"postgis"`
	Local struct {
		File string `yaml:"file"`
	} `yaml:"local"`
}

var (
	configFile string
	config     Config

	radiusKm  float64
	originLat float64
	originLon float64

	datasetFile string
)

var (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func init() {
	// Disable colors if not in a terminal
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		colorReset = ""
		colorGreen = ""
		colorYellow = ""
		colorCyan = ""
		colorBold = ""
	}
}

var rootCmd = &cobra.Command{
	Use:   "airport-search",
	Short: "Find airports within a radius of a point",
	Long: `Searches a geo-indexed airport dataset for all airports within a
given radius of a point, by projecting the circle onto rectangle queries
the index can answer and filtering the results by great-circle distance.`,
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a single radius search",
	Run:   runSearch,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive search loop",
	Long:  `Reads "radius; latitude; longitude" lines from stdin and prints the airports found. Type quit to exit.`,
	Run:   runRepl,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load an airport dataset into the configured backend",
	Long:  `Reads a JSON array of {name, lat, lon} records and loads it into the PostGIS or local backend.`,
	Run:   runLoad,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Config file path")

	searchCmd.Flags().Float64VarP(&radiusKm, "radius", "r", 50.0, "Search radius in km")
	searchCmd.Flags().Float64Var(&originLat, "lat", 0, "Origin latitude")
	searchCmd.Flags().Float64Var(&originLon, "lon", 0, "Origin longitude")

	loadCmd.Flags().StringVarP(&datasetFile, "input", "i", "airports.json", "Dataset file path")

	rootCmd.AddCommand(searchCmd, replCmd, loadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() {
	// Defaults: the world-readable Cloudant airport database.
	config.Backend = "cloudant"
	config.Cloudant.URL = "https://mikerhodes.cloudant.com"
	config.Cloudant.Database = "airportdb"
	config.Cloudant.DesignDoc = "view1"
	config.Cloudant.Index = "geo"
	config.PostGIS.Host = "localhost"
	config.PostGIS.Port = 5432
	config.Local.File = "airports.gob"

	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			log.Fatalf("Failed to parse %s: %v", configFile, err)
		}
	}

	// Credentials come from the environment (.env is optional).
	_ = godotenv.Load()
	if v := os.Getenv("CLOUDANT_URL"); v != "" {
		config.Cloudant.URL = v
	}
	if v := os.Getenv("CLOUDANT_USERNAME"); v != "" {
		config.Cloudant.Username = v
	}
	if v := os.Getenv("CLOUDANT_PASSWORD"); v != "" {
		config.Cloudant.Password = v
	}
	if v := os.Getenv("POSTGIS_PASSWORD"); v != "" {
		config.PostGIS.Password = v
	}
}

// openBackend establishes the configured search session. The caller owns
// the returned backend and must Close it.
func openBackend() (airports.Backend, error) {
	switch config.Backend {
	case "cloudant":
		return cloudant.NewSession(cloudant.Config{
			URL:       config.Cloudant.URL,
			Database:  config.Cloudant.Database,
			DesignDoc: config.Cloudant.DesignDoc,
			Index:     config.Cloudant.Index,
			Username:  config.Cloudant.Username,
			Password:  config.Cloudant.Password,
		}), nil
	case "postgis":
		return postgis.NewIndex(
			config.PostGIS.Host, config.PostGIS.User,
			config.PostGIS.Password, config.PostGIS.Database,
			config.PostGIS.Port)
	case "local":
		index := rtree.NewIndex()
		if err := index.LoadFromFile(config.Local.File); err != nil {
			return nil, err
		}
		return index, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", config.Backend)
	}
}

func runSearch(cmd *cobra.Command, args []string) {
	loadConfig()

	if err := validateInput(radiusKm, originLat, originLon); err != nil {
		log.Fatalf("Invalid input: %v", err)
	}

	backend, err := openBackend()
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer backend.Close()

	results, err := airports.NewSearcher(backend).Search(radiusKm, originLat, originLon)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	printResults(results)
}

func runRepl(cmd *cobra.Command, args []string) {
	loadConfig()

	backend, err := openBackend()
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer backend.Close()

	searcher := airports.NewSearcher(backend)

	fmt.Printf("%sEnter: radius; latitude; longitude%s (quit to exit)\n", colorBold, colorReset)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> %s", colorCyan, colorReset)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		radius, lat, lon, err := parseInput(line)
		if err != nil {
			fmt.Printf("%v\n", err)
			continue
		}

		results, err := searcher.Search(radius, lat, lon)
		if err != nil {
			fmt.Printf("Search failed: %v\n", err)
			continue
		}
		printResults(results)
	}
}

func runLoad(cmd *cobra.Command, args []string) {
	loadConfig()

	data, err := os.ReadFile(datasetFile)
	if err != nil {
		log.Fatalf("Failed to read dataset: %v", err)
	}
	var list []*models.Airport
	if err := json.Unmarshal(data, &list); err != nil {
		log.Fatalf("Failed to parse dataset: %v", err)
	}

	switch config.Backend {
	case "postgis":
		index, err := postgis.NewIndex(
			config.PostGIS.Host, config.PostGIS.User,
			config.PostGIS.Password, config.PostGIS.Database,
			config.PostGIS.Port)
		if err != nil {
			log.Fatalf("Failed to open PostGIS: %v", err)
		}
		defer index.Close()

		if err := index.InitSchema(); err != nil {
			log.Fatalf("Failed to init schema: %v", err)
		}
		if err := index.BulkInsertAirports(list); err != nil {
			log.Fatalf("Failed to insert airports: %v", err)
		}
		count, err := index.Count()
		if err != nil {
			log.Fatalf("Failed to count airports: %v", err)
		}
		fmt.Printf("%s✓ airports table now holds %d rows%s\n", colorGreen, count, colorReset)
	case "local":
		index := rtree.NewIndex()
		index.Load(list)
		if err := index.SaveToFile(config.Local.File); err != nil {
			log.Fatalf("Failed to save index: %v", err)
		}
	default:
		log.Fatalf("Backend %q does not support loading", config.Backend)
	}

	fmt.Printf("%s✓ Loaded %d airports into %s backend%s\n", colorGreen, len(list), config.Backend, colorReset)
}

// parseInput splits a "radius; lat; lon" line and validates the values.
func parseInput(line string) (radius, lat, lon float64, err error) {
	parts := strings.Split(line, ";")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 values separated by ';', got %d", len(parts))
	}

	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("not a number: %q", strings.TrimSpace(p))
		}
		vals[i] = v
	}

	if err := validateInput(vals[0], vals[1], vals[2]); err != nil {
		return 0, 0, 0, err
	}
	return vals[0], vals[1], vals[2], nil
}

func validateInput(radius, lat, lon float64) error {
	if radius <= 0 {
		return fmt.Errorf("radius must be positive, got %v", radius)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be in [-90, 90], got %v", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude must be in [-180, 180], got %v", lon)
	}
	return nil
}

func printResults(results []*models.Airport) {
	if len(results) == 0 {
		fmt.Println("No airports found.")
		return
	}

	fmt.Printf("%sFound %d airports:%s\n", colorBold, len(results), colorReset)
	for _, a := range results {
		fmt.Printf("  %s%9.3f km%s  %s (%.5f, %.5f)\n",
			colorYellow, a.Distance, colorReset, a.Name, a.Lat, a.Lon)
	}
}
