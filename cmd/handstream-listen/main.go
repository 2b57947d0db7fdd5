// Command handstream-listen finds a handstream server on the local network,
// registers with it and prints every frame it receives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayusman/handstream/internal/discovery"
	"github.com/ayusman/handstream/internal/relay"
	"github.com/ayusman/handstream/internal/wire"
)

func main() {
	addr := flag.String("addr", "", "server control address (host:port); browse when empty")
	service := flag.String("service", discovery.DefaultServiceType, "service type to browse for")
	domain := flag.String("domain", discovery.DefaultDomain, "browse domain")
	port := flag.Int("port", relay.DefaultDestPort, "local UDP port frames arrive on")
	timeout := flag.Duration("timeout", 10*time.Second, "browse timeout")
	raw := flag.Bool("raw", false, "print documents as received")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	packets, err := net.ListenUDP("udp", &net.UDPAddr{Port: *port})
	if err != nil {
		log.Fatalf("Failed to listen on UDP port %d: %v", *port, err)
	}
	defer packets.Close()

	target := *addr
	if target == "" {
		target, err = browse(ctx, *service, *domain, *timeout)
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
	}

	conn, err := net.Dial("tcp", target)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", target, err)
	}
	defer conn.Close()
	log.Printf("Registered with %s, receiving on UDP port %d", target, *port)

	go func() {
		<-ctx.Done()
		packets.Close()
	}()

	buf := make([]byte, 2048)
	for {
		n, from, err := packets.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Fatalf("Receive failed: %v", err)
		}

		text := string(buf[:n])
		if *raw {
			fmt.Println(text)
			continue
		}

		rec, err := wire.Decode(text)
		if err != nil {
			log.Printf("Bad frame from %s: %v", from, err)
			continue
		}
		fmt.Printf("frame %d t=%dms pos=(%.2f, %.2f, %.2f) rot=(%.2f, %.2f, %.2f) flex=%v\n",
			rec.FrameID, rec.TimestampMillis,
			rec.Position.X, rec.Position.Y, rec.Position.Z,
			rec.Rotation.Pitch, rec.Rotation.Yaw, rec.Rotation.Roll,
			rec.Flexion)
	}
}

// browse returns the address of the first server found.
func browse(ctx context.Context, service, domain string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Printf("Browsing for %s in %s", service, domain)
	endpoints, err := discovery.Browse(ctx, service, domain)
	if err != nil {
		return "", err
	}

	for ep := range endpoints {
		log.Printf("Found %s at %s", ep.Instance, ep.Address())
		return ep.Address(), nil
	}
	return "", fmt.Errorf("no %s service found within %v", service, timeout)
}
