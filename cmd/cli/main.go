// Command geoindex-cli is a small, self-contained demo of the spatial index
// core: it generates a synthetic point cloud, builds a BVH over it, and runs
// either a kNN query or a spatial join against it (inner by default,
// left-outer with -left), printing results to
// stdout. It does not talk to a running geoindex-server; it links the core
// packages directly, the way the teacher's cmd/cli talked to its gRPC server
// but trimmed to a single process since there is no wire protocol here to
// demonstrate client-side.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/geom2d"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/join"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/knn"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "knn":
		handleKNN(os.Args[2:])
	case "join":
		handleJoin(os.Args[2:])
	case "version":
		fmt.Printf("geoindex-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

func handleKNN(args []string) {
	fs := flag.NewFlagSet("knn", flag.ExitOnError)
	var (
		n        = fs.Int("n", 1000, "number of points to generate")
		queryStr = fs.String("query", "0,0", "query point as \"x,y\"")
		k        = fs.Int("k", 5, "number of neighbors to return")
		seed     = fs.Int64("seed", 1, "random seed for point generation")
	)
	fs.Parse(args)

	qx, qy, err := parsePoint(*queryStr)
	if err != nil {
		fmt.Printf("Error parsing -query: %v\n", err)
		os.Exit(1)
	}

	shapes := generatePoints(*n, *seed)
	prov := provider.NewSliceProvider(shapes)

	params := bvh.DefaultBuildParams()
	params.RNGSeed = uint64(*seed)

	start := time.Now()
	idx, err := bvh.Build(prov, params)
	if err != nil {
		fmt.Printf("Error building index: %v\n", err)
		os.Exit(1)
	}
	buildTook := time.Since(start)

	query := geom2d.Point{X: qx, Y: qy}

	start = time.Now()
	items, err := knn.TrueKNN(idx, query, *k, 0)
	if err != nil {
		fmt.Printf("Error running query: %v\n", err)
		os.Exit(1)
	}
	queryTook := time.Since(start)

	fmt.Printf("Built index over %d points in %s (depth=%d)\n", idx.Len(), buildTook, idx.Depth())
	fmt.Printf("Nearest %d neighbors of (%.4f, %.4f), found in %s:\n\n", *k, qx, qy, queryTook)
	for i, item := range items {
		fmt.Printf("  %d. id=%-8d distance=%.6f\n", i+1, item.ID, item.Distance)
	}
}

func handleJoin(args []string) {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	var (
		n       = fs.Int("n", 1000, "number of right-side points to generate")
		m       = fs.Int("m", 10, "number of left-side points to generate")
		k       = fs.Int("k", 1, "number of neighbors per left row")
		seed    = fs.Int64("seed", 1, "random seed for point generation")
		leftOut = fs.Bool("left", false, "use a left-outer join instead of inner")
	)
	fs.Parse(args)

	rightShapes := generatePoints(*n, *seed)
	rightProv := provider.NewSliceProvider(rightShapes)

	params := bvh.DefaultBuildParams()
	params.RNGSeed = uint64(*seed)
	idx, err := bvh.Build(rightProv, params)
	if err != nil {
		fmt.Printf("Error building right index: %v\n", err)
		os.Exit(1)
	}

	leftShapes := generatePoints(*m, *seed+1)
	leftProv := provider.NewSliceProvider(leftShapes)

	mode := join.Inner
	if *leftOut {
		mode = join.Left
	}

	fmt.Printf("Joining %d left rows against a %d-point index (k=%d)\n\n", *m, idx.Len(), *k)
	rows := 0
	for res := range join.Join(leftProv, idx, *k, mode) {
		rows++
		fmt.Printf("left id=%-4d -> ", res.LeftID)
		if len(res.Items) == 0 {
			fmt.Println("(no match)")
			continue
		}
		parts := make([]string, len(res.Items))
		for i, item := range res.Items {
			parts[i] = fmt.Sprintf("id=%d(d=%.4f)", item.ID, item.Distance)
		}
		fmt.Println(strings.Join(parts, ", "))
	}
	fmt.Printf("\n%d rows emitted\n", rows)
}

// generatePoints produces n uniformly distributed points in [0, 100)^2, seeded
// for reproducibility.
func generatePoints(n int, seed int64) []geom2d.Geometry {
	rng := rand.New(rand.NewSource(seed))
	shapes := make([]geom2d.Geometry, n)
	for i := range shapes {
		shapes[i] = geom2d.Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
	}
	return shapes
}

func parsePoint(s string) (x, y float64, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected \"x,y\", got %q", s)
	}
	x, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func showUsage() {
	fmt.Println(`geoindex-cli - standalone demo of the BVH kNN/join engine

Usage:
  geoindex-cli <command> [options]

Commands:
  knn      Build an index over generated points and run a kNN query
  join     Build an index and join a generated left set against it
  version  Show version
  help     Show this help message

Examples:

  # Find the 5 nearest generated points to (50, 50)
  geoindex-cli knn -n 5000 -query "50,50" -k 5

  # Join 20 generated left points against a 5000-point index, k=3
  geoindex-cli join -n 5000 -m 20 -k 3

  # Left-outer join, keeping left rows with no match
  geoindex-cli join -n 100 -m 20 -k 1 -left`)
}
