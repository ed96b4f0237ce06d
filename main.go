// Command annoted runs the annotation bridge daemon: it opens (or
// attaches to) a Chrome tab, overlays the annotation engine on it, and
// serves the capture/download action protocol over a websocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/omarthisside/annoted/internal/bridge"
	"github.com/omarthisside/annoted/internal/discovery"
	"github.com/omarthisside/annoted/internal/session"
)

func main() {
	var (
		addr      = flag.String("addr", ":8877", "address for the action websocket and share endpoint")
		pageURL   = flag.String("url", "", "page to open and annotate (required)")
		chromeURL = flag.String("chrome", "", "DevTools URL of a running Chrome; launches one when empty")
		headless  = flag.Bool("headless", false, "launch Chrome headless")
		downloads = flag.String("downloads", defaultDownloadsDir(), "directory for exported captures")
		dbPath    = flag.String("db", defaultDBPath(), "session database path")
		announce  = flag.Bool("mdns", true, "advertise the bridge on the LAN")
		discover  = flag.Bool("discover", false, "list bridges advertised on the LAN and exit")
	)
	flag.Parse()
	if *discover {
		found := 0
		err := discovery.Browse(func(addr string) {
			found++
			fmt.Printf("ws://%s/ws\n", addr)
		})
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		if found == 0 {
			log.Println("No bridges found")
		}
		return
	}
	if *pageURL == "" {
		flag.Usage()
		log.Fatal("missing -url")
	}

	allocCtx, allocCancel := newAllocator(*chromeURL, *headless)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	tab, tabCancel, err := bridge.NewTab(browserCtx, *pageURL)
	if err != nil {
		log.Fatalf("Failed to open tab: %v", err)
	}
	defer tabCancel()

	sessions, err := session.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer sessions.Close()

	downloader, err := bridge.NewDownloader(*downloads)
	if err != nil {
		log.Fatalf("Failed to prepare downloads: %v", err)
	}

	eng, err := newEngine(tab, sessions, downloader)
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", bridge.NewServer(eng))
	mux.HandleFunc("/share", eng.handleShare)
	srv := &http.Server{Addr: *addr, Handler: mux}

	if *announce {
		if port := portOf(*addr); port > 0 {
			mdnsServer, err := discovery.Advertise(port)
			if err != nil {
				log.Printf("mDNS advertise failed: %v", err)
			} else {
				defer mdnsServer.Shutdown()
			}
		}
	}

	go func() {
		log.Printf("Bridge listening on ws://%s%s/ws", discovery.OutgoingIP(), portSuffix(*addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}

func newAllocator(chromeURL string, headless bool) (context.Context, context.CancelFunc) {
	if chromeURL != "" {
		log.Printf("Attaching to Chrome at %s", chromeURL)
		return chromedp.NewRemoteAllocator(context.Background(), chromeURL)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	log.Printf("Launching Chrome (headless: %v)", headless)
	return chromedp.NewExecAllocator(context.Background(), opts...)
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "downloads"
	}
	return filepath.Join(home, "Downloads", "annoted")
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "annoted-sessions.db"
	}
	return filepath.Join(dir, "annoted", "sessions.db")
}

func portOf(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

func portSuffix(addr string) string {
	if port := portOf(addr); port > 0 {
		return fmt.Sprintf(":%d", port)
	}
	return addr
}
