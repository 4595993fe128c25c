package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/odtweather/trail/server/internal/clients/trailfeed"
	"github.com/odtweather/trail/server/internal/lib/trail"
	"github.com/odtweather/trail/server/internal/lib/viewport"
	"github.com/odtweather/trail/server/internal/render"
)

func main() {
	dataDir := flag.String("data", "data", "Directory holding the trail data files")
	mile := flag.Float64("mile", 0, "Mile to centre the chart on")
	gpsMile := flag.Float64("gps", 0, "Mile of the \"You\" marker, 0 for none")
	width := flag.Int("width", 800, "Image width in pixels")
	height := flag.Int("height", 260, "Image height in pixels")
	out := flag.String("out", "chart.png", "Output PNG path")
	flag.Parse()

	ctx := context.Background()
	source := trailfeed.NewDirSource(*dataDir)

	samples, err := trail.NewStore(source).Samples(ctx)
	if err != nil {
		log.Fatalf("Error loading elevation profile: %v", err)
	}

	layer := viewport.NewLayer()
	for _, category := range trail.Categories {
		pois, err := source.FetchPOIs(ctx, category)
		if err != nil {
			log.Printf("Skipping %s: %v", category, err)
			continue
		}
		layer.Swap(category, pois)
	}

	surface, err := render.NewSurface(*width, *height)
	if err != nil {
		log.Fatalf("Error creating surface: %v", err)
	}

	vp := viewport.New(surface, layer, viewport.Options{})
	vp.Load(samples)
	vp.SetGPSMile(*gpsMile)
	vp.CenterOn(*mile)

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Error creating %s: %v", *out, err)
	}
	if err := surface.EncodePNG(f); err != nil {
		log.Fatalf("Error encoding PNG: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Error writing %s: %v", *out, err)
	}

	strip := vp.Strip()
	fmt.Println(strip.View.Text("View"))
	if *gpsMile > 0 {
		fmt.Println(strip.GPS.Text("GPS"))
	}
	log.Printf("Wrote %s", *out)
}
