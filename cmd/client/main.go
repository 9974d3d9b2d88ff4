package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/atinyakov/calendar/internal/client"
	"github.com/atinyakov/calendar/internal/models"
)

var (
	version   string
	buildDate string
)

const usage = "Available commands: help, register <login> <password>, login <login> <password>, " +
	"add <name> <YYYYMMDD> <time> <minutes>, list, whoami, exit"

// repl runs the interactive shell loop until exit or end of input.
func repl(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "calendar> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Fprintln(out, usage)
		case "register":
			if len(args) != 3 {
				fmt.Fprintln(out, "Usage: register <login> <password>")
				continue
			}
			if err := c.Register(ctx, args[1], args[2]); err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintln(out, "Registered")
		case "login":
			if len(args) != 3 {
				fmt.Fprintln(out, "Usage: login <login> <password>")
				continue
			}
			if _, err := c.Login(ctx, args[1], args[2]); err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintln(out, "Logged in")
		case "add":
			if len(args) != 5 {
				fmt.Fprintln(out, "Usage: add <name> <YYYYMMDD> <time> <minutes>")
				continue
			}
			minutes, err := strconv.ParseInt(args[4], 10, 64)
			if err != nil {
				fmt.Fprintln(out, "Duration must be a whole number of minutes")
				continue
			}
			e := models.Event{Name: args[1], Date: args[2], Time: args[3], Duration: minutes}
			if err := c.SaveEvent(ctx, e); err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintln(out, "Event saved")
		case "list":
			events, err := c.Events(ctx)
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No upcoming events")
			}
			for _, e := range events {
				fmt.Fprintf(out, "%s %s  %s (%d min)\n", e.Date, e.Time, e.Name, e.Duration)
			}
		case "whoami":
			login, err := c.Username(ctx)
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintln(out, login)
		case "exit":
			fmt.Fprintln(out, "Bye")
			return
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// main parses command-line flags and starts the shell.
func main() {
	var (
		baseURL string
		caFile  string
		showVer bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&caFile, "ca", "", "path to a trusted server certificate, for self-signed HTTPS")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Calendar Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	hc, err := client.NewHTTPClient(caFile)
	if err != nil {
		log.Fatal(err)
	}
	c, err := client.New(baseURL, hc)
	if err != nil {
		log.Fatal(err)
	}

	repl(context.Background(), c, os.Stdin, os.Stdout)
}
