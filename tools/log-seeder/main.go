// log-seeder posts batches of synthetic network/security events to a running
// collector. Development and load-testing tool; not part of the service.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
)

var (
	ingestURL string
	apiKey    string
	batchSize int
	interval  time.Duration
	count     int
	errorRate float64
)

var services = []string{"nginx", "sshd", "postfix", "app", "suricata"}
var protocols = []string{"tcp", "udp", "http", "smtp"}
var hosts = []string{"web-1", "web-2", "api-1", "db-1"}
var directions = []string{"inbound", "outbound"}
var dstPorts = []int{22, 80, 443, 25, 53, 3306}

type event struct {
	TS         string         `json:"ts"`
	SourceHost string         `json:"source_host"`
	SrcIP      string         `json:"src_ip"`
	DstIP      string         `json:"dst_ip"`
	SrcPort    int            `json:"src_port"`
	DstPort    int            `json:"dst_port"`
	Protocol   string         `json:"protocol"`
	Direction  string         `json:"direction"`
	Status     string         `json:"status"`
	LatencyMS  *int           `json:"latency_ms,omitempty"`
	BytesIn    int            `json:"bytes_in"`
	BytesOut   int            `json:"bytes_out"`
	Service    string         `json:"service"`
	Raw        string         `json:"raw"`
	Tags       map[string]any `json:"tags"`
}

func main() {
	root := &cobra.Command{
		Use:   "log-seeder",
		Short: "Generate and post synthetic log event batches",
		RunE:  run,
	}

	root.Flags().StringVar(&ingestURL, "url", "http://localhost:8080/ingest", "collector ingest URL")
	root.Flags().StringVar(&apiKey, "api-key", os.Getenv("INGEST_API_KEY"), "X-API-KEY value")
	root.Flags().IntVar(&batchSize, "batch-size", 200, "events per batch")
	root.Flags().DurationVar(&interval, "interval", 2*time.Second, "pause between batches")
	root.Flags().IntVar(&count, "count", 0, "number of batches to send (0 = run until interrupted)")
	root.Flags().Float64Var(&errorRate, "error-rate", 0.15, "fraction of events with status error or denied")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if apiKey == "" {
		return fmt.Errorf("an API key is required: use --api-key or INGEST_API_KEY")
	}

	gofakeit.Seed(time.Now().UnixNano())

	client := &http.Client{Timeout: 10 * time.Second}
	log.Printf("Sending batches of %d events to %s every %v", batchSize, ingestURL, interval)

	sent := 0
	for i := 0; count == 0 || i < count; i++ {
		batch := make([]event, batchSize)
		for j := range batch {
			batch[j] = genEvent()
		}

		if err := postBatch(client, batch); err != nil {
			log.Printf("ERR: %v", err)
		} else {
			sent += len(batch)
			log.Printf("OK: %d events sent (total %d)", len(batch), sent)
		}

		if count == 0 || i < count-1 {
			time.Sleep(interval)
		}
	}
	return nil
}

func genEvent() event {
	status := "ok"
	if rand.Float64() < errorRate {
		if rand.Intn(2) == 0 {
			status = "error"
		} else {
			status = "denied"
		}
	}

	var latency *int
	if rand.Intn(2) == 0 {
		v := 5 + rand.Intn(495)
		latency = &v
	}

	return event{
		TS:         time.Now().UTC().Format(time.RFC3339Nano),
		SourceHost: hosts[rand.Intn(len(hosts))],
		SrcIP:      privateIP(),
		DstIP:      gofakeit.IPv4Address(),
		SrcPort:    1024 + rand.Intn(64511),
		DstPort:    dstPorts[rand.Intn(len(dstPorts))],
		Protocol:   protocols[rand.Intn(len(protocols))],
		Direction:  directions[rand.Intn(len(directions))],
		Status:     status,
		LatencyMS:  latency,
		BytesIn:    rand.Intn(5000),
		BytesOut:   rand.Intn(5000),
		Service:    services[rand.Intn(len(services))],
		Raw:        fmt.Sprintf("%s %s %d", gofakeit.HTTPMethod(), gofakeit.URL(), gofakeit.HTTPStatusCode()),
		Tags: map[string]any{
			"env":    "dev",
			"region": "us-east-1",
		},
	}
}

func privateIP() string {
	if rand.Intn(2) == 0 {
		return fmt.Sprintf("10.%d.%d.%d", rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
	}
	return fmt.Sprintf("192.168.%d.%d", rand.Intn(256), 1+rand.Intn(254))
}

func postBatch(client *http.Client, batch []event) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, ingestURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("collector returned %s", resp.Status)
	}
	return nil
}
