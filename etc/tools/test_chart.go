package main

import (
	"fmt"
	"os"
	"time"

	"channel-tracker/internal/features/charts"
	"channel-tracker/internal/stats"
)

// go run etc/tools/test_chart.go
// renders a synthetic 60-day history into etc/charts/sample_chart.png
func main() {
	fmt.Println("Generating test chart...")

	start := time.Now().UTC().AddDate(0, 0, -59).Truncate(24 * time.Hour)
	series := make(stats.Series, 0, 60)
	subs, views, videos := uint64(12000), uint64(850000), uint64(140)
	for i := 0; i < 60; i++ {
		subs += uint64(20 + i%7*5)
		views += uint64(3000 + i%5*900)
		if i%6 == 0 {
			videos++
		}
		series = append(series, stats.Record{
			Timestamp:   start.AddDate(0, 0, i),
			ChannelID:   "UCsample",
			Subscribers: subs,
			Views:       views,
			Videos:      videos,
		})
	}

	chartPath := "etc/charts/sample_chart.png"
	if _, err := charts.NewRenderer().RenderChannel(series, "Sample channel", chartPath); err != nil {
		fmt.Printf("Error generating chart: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Chart generated successfully: %s\n", chartPath)
	fmt.Println("Open the file to see the result!")
}
