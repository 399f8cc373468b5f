// rpadmin is an interactive console for inspecting and destroying rooms
// on a running rpnow server. Admin endpoints only answer on loopback,
// so run it on the same host.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/rpnow/rpnow2/clients/go/rpnow"
)

func main() {
	fmt.Println("RPNow Admin Console")

	baseURL := os.Getenv("RPNOW_URL")
	client := rpnow.NewClient(baseURL)

	if err := client.Health(); err != nil {
		fmt.Fprintf(os.Stderr, "cannot reach server: %v\n", err)
		os.Exit(1)
	}

	for {
		rooms, err := client.ListRooms()
		if err != nil {
			fmt.Fprintf(os.Stderr, "listing rooms: %v\n", err)
			os.Exit(1)
		}
		if len(rooms) == 0 {
			fmt.Println("No rooms on this server.")
			return
		}

		room, ok := pickRoom(rooms)
		if !ok {
			return
		}

		for {
			view, err := client.GetRoom(room.RPCode)
			if err != nil {
				fmt.Fprintf(os.Stderr, "fetching room: %v\n", err)
				break
			}

			fmt.Println()
			fmt.Printf("%s (/rp/%s)\n", view.Title, room.RPCode)
			fmt.Printf("  %d messages, %d charas, %d online\n", view.MsgCount, len(view.Charas), room.Online)

			prompt := promptui.Select{
				Label: fmt.Sprintf("Modify %q", view.Title),
				Items: []string{"go back", "destroy rp"},
			}
			_, action, err := prompt.Run()
			if err != nil {
				return
			}
			if action == "go back" {
				break
			}

			killswitch := strings.ToUpper(fmt.Sprintf("destroy %s", view.Title))
			confirm := promptui.Prompt{Label: fmt.Sprintf("Type %q", killswitch)}
			result, _ := confirm.Run()
			if result != killswitch {
				fmt.Println("Not destroyed.")
				continue
			}

			if err := client.DestroyRoom(room.RPCode); err != nil {
				fmt.Fprintf(os.Stderr, "destroying room: %v\n", err)
				continue
			}
			fmt.Printf("Destroyed %q.\n", view.Title)
			break
		}
	}
}

func pickRoom(rooms []rpnow.AdminRoom) (rpnow.AdminRoom, bool) {
	labels := make([]string, 0, len(rooms)+1)
	for _, r := range rooms {
		labels = append(labels, fmt.Sprintf("%s  [%s]", r.Title, r.RPCode))
	}
	labels = append(labels, "quit")

	prompt := promptui.Select{
		Label: "Select an RP",
		Items: labels,
		Size:  15,
	}
	i, _, err := prompt.Run()
	if err != nil || i == len(rooms) {
		return rpnow.AdminRoom{}, false
	}
	return rooms[i], true
}
