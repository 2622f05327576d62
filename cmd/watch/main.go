// Command watch runs a live client session against a server: it keeps
// a reconciled local view on screen and accepts edits on stdin.
//
//	add <name> <quantity>
//	set <id> <quantity>
//	del <id>
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Selvababu93/realtime-inventory/internal/client"
	"github.com/Selvababu93/realtime-inventory/internal/core/domain"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	reconnect := flag.Duration("reconnect", 3*time.Second, "delay between reconnect attempts")
	flag.Parse()

	wsURL := "ws" + strings.TrimPrefix(*server, "http") + "/ws"

	api := client.NewHTTPAPI(*server)
	session := client.NewSession(api, &client.WSTransport{URL: wsURL}, client.Options{
		ReconnectDelay: *reconnect,
		Render:         printView,
		OnEditFailed: func(id int64, err error) {
			fmt.Printf("edit of item %d rejected: %v\n", id, err)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("session stopped: %v", err)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := dispatch(ctx, api, session, scanner.Text()); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func dispatch(ctx context.Context, api *client.HTTPAPI, session *client.Session, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "add":
		if len(fields) != 3 {
			return fmt.Errorf("usage: add <name> <quantity>")
		}
		quantity, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("bad quantity: %q", fields[2])
		}
		_, err = api.Create(ctx, fields[1], quantity)
		return err
	case "set":
		id, quantity, err := parseIDQuantity(fields)
		if err != nil {
			return err
		}
		return session.Edit(ctx, id, quantity)
	case "del":
		if len(fields) != 2 {
			return fmt.Errorf("usage: del <id>")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad id: %q", fields[1])
		}
		return api.Delete(ctx, id)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseIDQuantity(fields []string) (int64, int, error) {
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("usage: set <id> <quantity>")
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad id: %q", fields[1])
	}
	quantity, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, 0, fmt.Errorf("bad quantity: %q", fields[2])
	}
	return id, quantity, nil
}

func printView(items []domain.Item, pending map[int64]bool) {
	fmt.Printf("---- %d items ----\n", len(items))
	for _, it := range items {
		mark := " "
		if pending[it.ID] {
			mark = "*"
		}
		fmt.Printf("%s %4d  %-20s %d\n", mark, it.ID, it.Name, it.Quantity)
	}
}
