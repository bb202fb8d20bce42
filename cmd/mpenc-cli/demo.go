package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sage-x-project/mpenc/config"
	"github.com/sage-x-project/mpenc/greeter"
	"github.com/sage-x-project/mpenc/session"
	"github.com/sage-x-project/mpenc/transport"
	"github.com/sage-x-project/mpenc/transport/ws"
)

// demoClient bundles one participant's Greeter-backed Session together
// with whatever transport connected it and, if this process is hosting
// the group's hub, the http.Server doing so.
type demoClient struct {
	sess    *session.Session
	channel transport.GroupChannel
	server  *http.Server
}

func newDemoClient(id, listen, connect, keyDirFlag string) (*demoClient, error) {
	cfg := config.DefaultGroupConfig()
	if keyDirFlag != "" {
		cfg.StaticKeyDir = keyDirFlag
	}

	signer, err := loadOrCreateSeed(cfg.StaticKeyDir, id)
	if err != nil {
		return nil, err
	}
	dir, err := loadStaticDir(cfg.StaticKeyDir)
	if err != nil {
		return nil, err
	}
	dir[id] = signer.Public

	c := &demoClient{}

	var channel transport.GroupChannel
	switch {
	case listen != "":
		hub := ws.NewHub()
		c.server = &http.Server{Addr: listen, Handler: hub}
		go func() {
			_ = c.server.ListenAndServe()
		}()
		time.Sleep(50 * time.Millisecond)
		ch, err := ws.Dial(context.Background(), "ws://"+listen+"/", id, nil)
		if err != nil {
			return nil, fmt.Errorf("demo: dial self-hosted hub: %w", err)
		}
		channel = ch
	case connect != "":
		ch, err := ws.Dial(context.Background(), connect, id, nil)
		if err != nil {
			return nil, fmt.Errorf("demo: dial %s: %w", connect, err)
		}
		channel = ch
	default:
		return nil, fmt.Errorf("demo: either --listen or --connect is required")
	}
	c.channel = channel

	g := greeter.New(id, signer, dir)
	sessCfg := session.Config{
		MaxAge:      cfg.Session.MaxAge,
		IdleTimeout: cfg.Session.IdleTimeout,
		MaxMessages: cfg.Session.MaxMessages,
	}
	c.sess = session.New(channel, g, sessCfg)
	c.sess.Padding = cfg.PaddingSize
	return c, nil
}

// Close tears down the Session and, if this process hosted the group's
// hub, its http.Server.
func (c *demoClient) Close() error {
	c.sess.Close()
	if ch, ok := c.channel.(*ws.Channel); ok {
		ch.Close()
	}
	if c.server != nil {
		return c.server.Close()
	}
	return nil
}
