package factory

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fleetpulse/fleet-telemetry/internal/config"
)

func CreateWSServer(conf config.WS, handler http.Handler) *http.Server {
	router := mux.NewRouter()
	router.Handle("/ws", handler).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return &http.Server{
		Addr:              fmt.Sprintf(":%v", conf.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
