// cmd/client/main.go
//
// Interactive demonstration client for the matchmaking server. It drives the
// line protocol over a plain TCP connection: a menu on stdin, a reader
// goroutine printing every server line (replies and asynchronous notices
// alike) as it arrives.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

const defaultAddr = "localhost:7777"

func main() {
	addr := defaultAddr
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	// One server line may carry an embedded multi-line payload (list_all);
	// it still arrives as newline-separated text, so printing line by line
	// is enough.
	replies := make(chan struct{}, 1)
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			fmt.Println()
			fmt.Println("*********")
			fmt.Println(scanner.Text())
			fmt.Println("*********")
			select {
			case replies <- struct{}{}:
			default:
			}
		}
		fmt.Println("connection closed by server")
		os.Exit(0)
	}()

	stdin := bufio.NewScanner(os.Stdin)
	for {
		printMenu()
		if !stdin.Scan() {
			return
		}
		choice, err := strconv.Atoi(strings.TrimSpace(stdin.Text()))
		if err != nil {
			fmt.Println("Invalid choice. Please enter a number between 1 and 4")
			continue
		}

		var command string
		switch choice {
		case 1:
			command = loginCommand(stdin)
		case 2:
			command = "list_all"
		case 3:
			command = "match"
		case 4:
			command = "logout"
		default:
			fmt.Println("Invalid option.")
			continue
		}
		if command == "" {
			continue
		}
		if _, err := fmt.Fprintf(conn, "%s\n", command); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			return
		}
		// Wait for the reply before offering the menu again, so prompts and
		// server output do not interleave.
		<-replies
	}
}

func printMenu() {
	fmt.Println()
	fmt.Println("Please choose one of these commands:")
	fmt.Println("1. login")
	fmt.Println("2. list_all")
	fmt.Println("3. match")
	fmt.Println("4. logout")
	fmt.Print("Your choice: ")
}

func loginCommand(stdin *bufio.Scanner) string {
	fields := make([]string, 0, 3)
	for _, prompt := range []string{"Name: ", "Country: ", "Rating: "} {
		fmt.Print(prompt)
		if !stdin.Scan() {
			return ""
		}
		fields = append(fields, strings.TrimSpace(stdin.Text()))
	}
	return "login," + strings.Join(fields, ",")
}
