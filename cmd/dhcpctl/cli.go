package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

type CLI struct {
	client     *Client
	serverAddr string
	rl         *readline.Instance
	running    bool
}

func NewCLI(client *Client, serverAddr string) *CLI {
	return &CLI{
		client:     client,
		serverAddr: serverAddr,
		running:    true,
	}
}

func (c *CLI) Run() error {
	var err error
	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "dhcpctl> ",
		HistoryFile:     os.ExpandEnv("$HOME/.dhcpctl_history"),
		AutoComplete:    buildCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer c.rl.Close()

	fmt.Printf("Connected to osdhcpd at %s. Type 'help' for commands.\n", c.serverAddr)

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					break
				}
				continue
			} else if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.processCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	return nil
}

func (c *CLI) Stop() {
	c.running = false
}

func buildCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("show",
			readline.PcItem("leases"),
			readline.PcItem("stats"),
			readline.PcItem("options"),
			readline.PcItem("parameters"),
		),
		readline.PcItem("set",
			readline.PcItem("option"),
			readline.PcItem("lease-times"),
		),
		readline.PcItem("sweep"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

func (c *CLI) processCommand(line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "show":
		if len(fields) < 2 {
			return fmt.Errorf("usage: show leases|stats|options|parameters")
		}
		return c.show(fields[1])
	case "set":
		return c.set(fields[1:])
	case "sweep":
		reclaimed, err := c.client.Sweep()
		if err != nil {
			return err
		}
		fmt.Printf("Reclaimed %d expired leases\n", reclaimed)
		return nil
	case "help":
		c.printHelp()
		return nil
	case "exit", "quit":
		c.running = false
		return nil
	default:
		return fmt.Errorf("unknown command %q, type 'help'", fields[0])
	}
}

func (c *CLI) show(what string) error {
	switch what {
	case "leases":
		leases, err := c.client.Leases()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MAC\tADDRESS\tEXPIRES\tSTATE")
		for _, l := range leases {
			state := "active"
			if l.Expired {
				state = "expired"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				l.MAC, l.Addr, time.Unix(l.Expiration, 0).Format(time.RFC3339), state)
		}
		return w.Flush()
	case "stats":
		stats, err := c.client.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Available addresses: %d\nAllocated addresses: %d\n",
			stats.Available, stats.Allocated)
		return nil
	case "options":
		opts, err := c.client.Options()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tVALUE")
		for _, opt := range opts {
			fmt.Fprintf(w, "%d\t%s\t%s\n",
				opt.Code, optionName(opt.Code), renderOptionValue(opt.Code, opt.Value))
		}
		return w.Flush()
	case "parameters":
		params, err := c.client.Parameters()
		if err != nil {
			return err
		}
		fmt.Printf("Server IP:          %s\n", params.ServerIP)
		fmt.Printf("Default lease time: %ds\n", params.DefaultLeaseTime)
		fmt.Printf("Max lease time:     %ds\n", params.MaxLeaseTime)
		fmt.Printf("Managed addresses:  %d\n", params.ManagedAddrs)
		return nil
	default:
		return fmt.Errorf("unknown target %q, usage: show leases|stats|options|parameters", what)
	}
}

func (c *CLI) set(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: set option <code> <hex-value> | set lease-times <default> <max>")
	}
	switch args[0] {
	case "option":
		if len(args) != 3 {
			return fmt.Errorf("usage: set option <code> <hex-value>")
		}
		code, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil {
			return fmt.Errorf("bad option code %q", args[1])
		}
		if err := c.client.SetOption(uint8(code), args[2]); err != nil {
			return err
		}
		fmt.Printf("Option %d updated\n", code)
		return nil
	case "lease-times":
		if len(args) != 3 {
			return fmt.Errorf("usage: set lease-times <default-seconds> <max-seconds>")
		}
		def, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bad default lease time %q", args[1])
		}
		max, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("bad max lease time %q", args[2])
		}
		params, err := c.client.SetLeaseTimes(uint32(def), uint32(max))
		if err != nil {
			return err
		}
		fmt.Printf("Lease times updated: default=%ds max=%ds\n",
			params.DefaultLeaseTime, params.MaxLeaseTime)
		return nil
	default:
		return fmt.Errorf("unknown target %q", args[0])
	}
}

func (c *CLI) printHelp() {
	fmt.Println(`Commands:
  show leases       List cached leases
  show stats        Pool availability counters
  show options      DHCP options the server hands out
  show parameters   Server-level parameters
  set option <code> <hex-value>
  set lease-times <default-seconds> <max-seconds>
  sweep             Reclaim expired leases now
  exit              Quit`)
}

func optionName(code uint8) string {
	switch dhcp.OptionCode(code) {
	case dhcp.OptSubnetMask:
		return "subnet-mask"
	case dhcp.OptRouter:
		return "router"
	case dhcp.OptDNSServer:
		return "domain-name-server"
	case dhcp.OptLeaseTime:
		return "lease-time"
	case dhcp.OptServerID:
		return "server-identifier"
	default:
		return "unknown"
	}
}

// renderOptionValue decodes the common option encodings for display;
// anything unrecognized stays hex.
func renderOptionValue(code uint8, valueHex string) string {
	value, err := hex.DecodeString(valueHex)
	if err != nil {
		return valueHex
	}
	switch dhcp.OptionCode(code) {
	case dhcp.OptSubnetMask, dhcp.OptRouter, dhcp.OptDNSServer, dhcp.OptServerID:
		if len(value)%4 != 0 || len(value) == 0 {
			return valueHex
		}
		parts := make([]string, 0, len(value)/4)
		for i := 0; i < len(value); i += 4 {
			addr, _ := netip.AddrFromSlice(value[i : i+4])
			parts = append(parts, addr.String())
		}
		return strings.Join(parts, ",")
	case dhcp.OptLeaseTime, dhcp.OptRenewalTime, dhcp.OptRebindingTime:
		if len(value) != 4 {
			return valueHex
		}
		return fmt.Sprintf("%ds", binary.BigEndian.Uint32(value))
	default:
		return valueHex
	}
}
