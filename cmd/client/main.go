package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat-relay/domain"
	"chat-relay/relay"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddr string `envconfig:"CHAT_SERVER_ADDR" default:"127.0.0.1:8080"`
	// READ_TIMEOUT bounds how long one receive may block before the
	// client retries; zero disables the deadline entirely.
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"0s"`
	// COLOURS enables colorized output for better readability.
	Colours  bool   `envconfig:"COLOURS" default:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := net.Dial("tcp", config.ServerAddr)
	if err != nil {
		return exitRuntime, fmt.Errorf("unable to connect to %s: %w", config.ServerAddr, err)
	}
	conn := relay.NewConn(raw)
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	fmt.Println("Connected to the server.")

	// Receiver: prints room traffic until the server disconnects us.
	received := make(chan struct{})
	go func() {
		defer close(received)
		for {
			if config.ReadTimeout > 0 {
				_ = conn.SetReadTimeout(config.ReadTimeout)
			}
			line, err := conn.ReceiveLine()
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				return
			}
			if line == domain.NoticeDisconnected {
				fmt.Println("You have been disconnected")
				return
			}
			fmt.Println(render(line, config.Colours))
		}
	}()

	// Writer: forwards stdin lines until TERM, interrupt, or server
	// side closure.
	input := readStdin()
	for {
		select {
		case <-ctx.Done():
			_ = conn.SendLine(domain.TerminateToken)
			return exitOK, nil
		case <-received:
			return exitOK, nil
		case text, ok := <-input:
			if !ok {
				_ = conn.SendLine(domain.TerminateToken)
				return exitOK, nil
			}
			if err := conn.SendLine(text); err != nil {
				return exitRuntime, fmt.Errorf("send failed: %w", err)
			}
			if text == domain.TerminateToken {
				return exitOK, nil
			}
		}
	}
}

func readStdin() <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// render colorizes room traffic: join/leave notices in green, relayed
// chat lines in cyan.
func render(line string, colours bool) string {
	if !colours {
		return line
	}
	if strings.HasSuffix(line, "has joined the chatroom") || strings.HasSuffix(line, "has left the chatroom") {
		return color.New(color.FgGreen).Render(line)
	}
	return color.New(color.FgCyan).Render(line)
}
