// Interactive demo client. Connects to a running server, creates or joins
// a room, and relays typed commands:
//
//	create <name>
//	join <code> <name>
//	start
//	word <word>
//	vote <playerId>
//	reveal
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
)

const (
	msgTypeCreateRoom = 101
	msgTypeJoinRoom   = 102
	msgTypeStartGame  = 103
	msgTypeSubmitWord = 104
	msgTypeVote       = 105
	msgTypeRevealNext = 106
)

// send formats and sends a framed message to the server.
func send(c *websocket.Conn, msgID uint16, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v", err)
				return
			}
			if len(message) < 4 {
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			fmt.Printf("<- [%d] %s\n", msgID, message[4:])
		}
	}()

	var roomCode string

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			var err error
			switch fields[0] {
			case "create":
				if len(fields) < 2 {
					fmt.Println("usage: create <name>")
					continue
				}
				err = send(c, msgTypeCreateRoom, map[string]string{"playerName": fields[1]})
			case "join":
				if len(fields) < 3 {
					fmt.Println("usage: join <code> <name>")
					continue
				}
				roomCode = strings.ToUpper(fields[1])
				err = send(c, msgTypeJoinRoom, map[string]string{"roomCode": roomCode, "playerName": fields[2]})
			case "start":
				err = send(c, msgTypeStartGame, map[string]string{"roomCode": roomCode})
			case "word":
				if len(fields) < 2 {
					fmt.Println("usage: word <word>")
					continue
				}
				err = send(c, msgTypeSubmitWord, map[string]string{"roomCode": roomCode, "word": fields[1]})
			case "vote":
				if len(fields) < 2 {
					fmt.Println("usage: vote <playerId>")
					continue
				}
				err = send(c, msgTypeVote, map[string]string{"roomCode": roomCode, "targetPlayerId": fields[1]})
			case "reveal":
				err = send(c, msgTypeRevealNext, map[string]string{"roomCode": roomCode})
			default:
				fmt.Println("unknown command")
				continue
			}
			if err != nil {
				log.Printf("Send error: %v", err)
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupted, closing connection")
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
