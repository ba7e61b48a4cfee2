// Command circlecli generates a star polygon through the circle service and
// prints the polygon, its candidate circles and the largest one as JSON.
package main

import (
	"biggest-circle-service/internal/api/dto"
	"biggest-circle-service/internal/client"
	"biggest-circle-service/internal/config"
	"biggest-circle-service/internal/domain"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type output struct {
	Polygon domain.Polygon  `json:"polygon"`
	Circles []domain.Circle `json:"circles"`
	Largest *domain.Circle  `json:"largest"`
}

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", config.Get("CIRCLE_SERVICE_URL", "http://localhost:8080"), "service base URL")
	cx := flag.Int("cx", 0, "center x")
	cy := flag.Int("cy", 0, "center y")
	minR := flag.Int("min", 50, "minimum vertex radius")
	maxR := flag.Int("max", 200, "maximum vertex radius")
	n := flag.Int("n", 12, "number of vertices")
	seed := flag.Int64("seed", -1, "random seed (negative for random)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	if err := run(*addr, *cx, *cy, *minR, *maxR, *n, *seed, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "circlecli:", err)
		os.Exit(1)
	}
}

func run(addr string, cx, cy, minR, maxR, n int, seed int64, timeout time.Duration) error {
	c, err := client.New(addr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = client.WithRequestID(ctx, uuid.NewString())

	req := dto.GeneratePolygonRequest{
		CenterPoint: domain.Point{X: cx, Y: cy},
		MinRadius:   minR,
		MaxRadius:   maxR,
		NVertices:   n,
	}
	if seed >= 0 {
		s := uint64(seed)
		req.Seed = &s
	}

	poly, err := c.GeneratePolygon(ctx, req)
	if err != nil {
		return err
	}

	circles, err := c.Circles(ctx, poly)
	if err != nil {
		return err
	}

	out := output{Polygon: poly, Circles: circles}
	if len(circles) > 0 {
		largest, err := c.Largest(ctx, poly)
		if err != nil {
			return err
		}
		out.Largest = &largest
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
