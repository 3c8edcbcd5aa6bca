package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/delta10/capabilities-proxy/internal/config"
	"github.com/delta10/capabilities-proxy/internal/proxy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	config, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatalln(err)
	}

	server, err := proxy.NewServer(config)
	if err != nil {
		log.Fatalln(err)
	}
	defer server.Close()

	s := &http.Server{
		Addr:           config.ListenAddress,
		Handler:        server.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   20 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("listening on %s", config.ListenAddress)
	if config.ListenTLS.Certificate != "" && config.ListenTLS.Key != "" {
		log.Fatal(s.ListenAndServeTLS(config.ListenTLS.Certificate, config.ListenTLS.Key))
	} else {
		log.Fatal(s.ListenAndServe())
	}
}
