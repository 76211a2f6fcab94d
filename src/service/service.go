package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/mosaicnetworks/halo/src/peers"
	"github.com/mosaicnetworks/halo/src/space"
	"github.com/mosaicnetworks/halo/src/timeframe"
	"github.com/sirupsen/logrus"
)

// Service exposes the state of a Space over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	space       *space.Space
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, s *space.Space, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		space:       s,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering halo API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/members", s.makeHandler(s.GetMembers))
	s.mux.HandleFunc("/feeds", s.makeHandler(s.GetFeeds))
	s.mux.HandleFunc("/timeframe", s.makeHandler(s.GetTimeframe))
	s.mux.HandleFunc("/processed", s.makeHandler(s.GetProcessed))
	s.mux.HandleFunc("/peers", s.makeHandler(s.GetPeers))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the http.Handler serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving halo API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.space.GetStats())
}

// GetMembers ...
func (s *Service) GetMembers(w http.ResponseWriter, r *http.Request) {
	members := s.space.Members()
	res := make([]Member, 0, len(members))
	for _, m := range members {
		res = append(res, NewMember(m))
	}
	writeJSON(w, res)
}

// GetFeeds ...
func (s *Service) GetFeeds(w http.ResponseWriter, r *http.Request) {
	feeds := s.space.Feeds()
	res := make([]Feed, 0, len(feeds))
	for _, f := range feeds {
		res = append(res, NewFeed(f))
	}
	writeJSON(w, res)
}

// GetTimeframe returns the length of every local feed.
func (s *Service) GetTimeframe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, Frames(s.space.Timeframe()))
}

// GetProcessed returns the position of the pipeline in every tracked feed.
func (s *Service) GetProcessed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, Frames(s.space.Processed()))
}

// GetPeers ...
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	returnPeerSet(w, s.space.GetPeers())
}

func returnPeerSet(w http.ResponseWriter, peers []*peers.Peer) {
	writeJSON(w, peers)
}

// Frames maps the hex key of every feed in tf to its sequence number.
func Frames(tf *timeframe.Timeframe) map[string]int64 {
	res := make(map[string]int64, tf.Size())
	for _, f := range tf.Frames() {
		res[f.Key.Hex()] = f.Seq
	}
	return res
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(v)
}
