// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// briskd is a minimal standalone demonstration of the embeddable
// server: a static file root plus an echo endpoint, bound to a single
// cleartext listener (there are no TLS flags). Real
// callers embed the brisk package directly; this command exists only
// to exercise Listen end to end, matching the teacher's convention of
// a thin entrypoint under cmds/<name>/main.go that does nothing but
// wire flags into library calls.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/brisk-http/brisk"
)

func main() {
	addr := flag.String("addr", "0.0.0.0", "bind address")
	port := flag.Int("port", 8080, "bind port")
	root := flag.String("root", ".", "static file root")
	flag.Parse()

	settings := brisk.NewServerSettings()
	settings.BindAddresses = []string{*addr}
	settings.Port = *port

	fileServer := http.Dir(*root)

	handler := func(req *brisk.Request, resp *brisk.Response) {
		switch req.Path {
		case "/echo":
			resp.WriteBody([]byte(req.Method+" "+req.RequestURL), "text/plain; charset=UTF-8", 200)
		default:
			f, err := fileServer.Open(req.Path)
			if err != nil {
				resp.WriteBody([]byte("not found"), "text/plain; charset=UTF-8", 404)
				return
			}
			defer f.Close()
			resp.WriteStream(f, "")
		}
	}

	ln, err := brisk.Listen(settings, handler)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer ln.StopListening()

	log.Printf("briskd listening on %s:%d, serving %s", *addr, *port, *root)
	select {}
}
