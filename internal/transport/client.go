package transport

import (
	"context"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Client is a connection to one topic.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to topic on the server at addr (host:port).
func Dial(ctx context.Context, addr, topic string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: topic}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", u.String())
	}
	return &Client{conn: conn}, nil
}

// Send writes msg as JSON.
func (c *Client) Send(msg interface{}) error {
	return c.conn.WriteJSON(msg)
}

// Receive reads the next status message.
func (c *Client) Receive() (StatusMsg, error) {
	var msg StatusMsg
	err := c.conn.ReadJSON(&msg)
	return msg, err
}

// Close says goodbye to the server and closes the connection.
func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// PublishKey sends a single key press to the server at addr.
func PublishKey(ctx context.Context, addr string, code int32) error {
	c, err := Dial(ctx, addr, TopicKeypress)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Send(KeyMsg{Data: code})
}

// PublishIndex asks the server at addr to jump to keyframe i.
func PublishIndex(ctx context.Context, addr string, i int) error {
	c, err := Dial(ctx, addr, TopicKeyframe)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Send(IndexMsg{Data: i})
}
