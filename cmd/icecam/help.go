package main

import (
	"fmt"

	"github.com/fatih/color"
)

const helpString = `Interactive ICE connectivity demo

Usage: icecam [OPTION]...

Network:
  -c, --comp-cnt=NUM       Component count (default: 1)
  -6, --enable-ipv6        Permit use of IPv6 (default: disabled)
      --port-min=NUM       Lowest local UDP port (default: any)
      --port-max=NUM       Highest local UDP port (default: any)
      --timeout=DURATION   Negotiation timeout (default: 30s)
  -H, --max-host=NUM       Maximum number of host candidates (default: all)

Servers:
  -n, --nameserver=IP      DNS server for STUN/TURN host names
  -s, --stun-srv=HOST      STUN server address, host[:port]
  -t, --turn-srv=HOST      TURN server address, host[:port]
  -T, --turn-tcp           Use TCP to connect to TURN server
  -u, --turn-username=UID  TURN username
  -p, --turn-password=PWD  TURN password

Logging:
  -L, --log-file=FILE      Save output to log file
  -l, --log-level=LEVEL    Default log level: E, W, I, D or T (default: I)

Miscellaneous:
      --config=FILE        Read settings from a YAML file. Options given on
                             the command line take precedence.
  -h, --help               Prints this help message and exits
  -v, --version            Prints version information and exits

Per-tag log levels may be set with $LOGLEVEL, e.g. LOGLEVEL=I,ice=D,pion/ice=T

Please report bugs to: aloha@lanikailabs.com`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	//  _
	// (_)  ___  ___   ___  __ _  _ __ ___
	// | | / __|/ _ \ / __|/ _` || '_ ` _ \
	// | || (__|  __/| (__| (_| || | | | | |
	// |_| \___|\___| \___|\__,_||_| |_| |_|

	// Line 1
	r.Printf(" _  ")
	y.Printf("    ")
	b.Printf("      ")
	r.Printf("      ")
	y.Printf("       ")
	b.Println("")

	// Line 2
	r.Printf("(_) ")
	y.Printf(" ___")
	b.Printf("  ___  ")
	r.Printf(" ___ ")
	y.Printf(" __ _ ")
	b.Println(" _ __ ___  ")

	// Line 3
	r.Printf("| | ")
	y.Printf("/ __|")
	b.Printf("/ _ \\ ")
	r.Printf("/ __|")
	y.Printf("/ _` |")
	b.Println("| '_ ` _ \\ ")

	// Line 4
	r.Printf("| |")
	y.Printf("| (__ ")
	b.Printf("|  __/")
	r.Printf("| (__")
	y.Printf("| (_| |")
	b.Println("| | | | | |")

	// Line 5
	r.Printf("|_|")
	y.Printf(" \\___|")
	b.Printf(" \\___|")
	r.Printf(" \\___|")
	y.Printf(" \\__,_|")
	b.Println("|_| |_| |_|")

	fmt.Println()
	fmt.Println(helpString)
}

// version displays information and exits successfully (GNU convention)
func version() {
	rev := GitRevisionId
	if rev == "" {
		rev = "(unknown revision)"
	}
	if GitTag != "" {
		fmt.Println("icecam", GitTag, rev)
	} else {
		fmt.Println("icecam", rev)
	}
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
}
