package space

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/feed"
	"github.com/mosaicnetworks/halo/src/net"
	"github.com/mosaicnetworks/halo/src/timeframe"
	"github.com/sirupsen/logrus"
)

func (s *Space) requestSync(target string, known map[string]int64) (net.SyncResponse, error) {
	args := net.SyncRequest{
		FromAddr:  s.trans.LocalAddr(),
		Known:     known,
		SyncLimit: s.conf.SyncLimit,
	}

	var out net.SyncResponse

	err := s.trans.Sync(target, &args, &out)

	return out, err
}

func (s *Space) processRPC(rpc net.RPC) {
	switch cmd := rpc.Command.(type) {
	case *net.SyncRequest:
		s.processSyncRequest(rpc, cmd)
	case *net.NotarizeRequest:
		s.processNotarizeRequest(rpc, cmd)
	default:
		s.logger.WithField("cmd", rpc.Command).Error("Unexpected RPC command")
		rpc.Respond(nil, fmt.Errorf("unexpected command"))
	}
}

func (s *Space) processSyncRequest(rpc net.RPC, cmd *net.SyncRequest) {
	s.logger.WithFields(logrus.Fields{
		"from":  cmd.FromAddr,
		"known": len(cmd.Known),
	}).Debug("process SyncRequest")

	resp := &net.SyncResponse{
		FromAddr: s.trans.LocalAddr(),
	}

	local := s.feeds.Timeframe()
	resp.Known = local.ToMap()

	known, err := timeframe.FromMap(cmd.Known)
	if err != nil {
		s.logger.WithError(err).Error("Decoding Known")
		rpc.Respond(resp, err)
		return
	}

	limit := s.conf.SyncLimit
	if cmd.SyncLimit > 0 && (limit <= 0 || cmd.SyncLimit < limit) {
		limit = cmd.SyncLimit
	}

	start := time.Now()
	msgs, err := s.messageDiff(local, known, limit)
	elapsed := time.Since(start)
	s.logger.WithField("duration", elapsed.Nanoseconds()).Debug("Diff()")

	if err != nil {
		s.logger.WithError(err).Error("Calculating Diff")
		rpc.Respond(resp, err)
		return
	}

	resp.Messages = msgs

	rpc.Respond(resp, nil)
}

// messageDiff returns the messages of local that known does not hold, feed
// by feed, at most limit of them when limit is positive. The genesis feed
// comes first so that admissions precede the feeds they admit.
func (s *Space) messageDiff(local, known *timeframe.Timeframe, limit int) ([]*feed.Message, error) {
	deps := timeframe.Dependencies(local, known)

	order := deps.Keys()
	if _, ok := deps.Get(s.genesisFeedKey); ok {
		order = append([]keys.PublicKey{s.genesisFeedKey}, deps.WithoutKeys(s.genesisFeedKey).Keys()...)
	}

	res := []*feed.Message{}
	for _, k := range order {
		to, _ := deps.Get(k)

		from := int64(0)
		if seq, ok := known.Get(k); ok {
			from = seq + 1
		}

		if limit > 0 {
			remaining := int64(limit - len(res))
			if remaining <= 0 {
				break
			}
			if to-from+1 > remaining {
				to = from + remaining - 1
			}
		}

		msgs, err := s.feeds.Range(k, from, to)
		if err != nil {
			return nil, err
		}
		res = append(res, msgs...)
	}

	return res, nil
}

func (s *Space) processNotarizeRequest(rpc net.RPC, cmd *net.NotarizeRequest) {
	s.logger.WithFields(logrus.Fields{
		"from":        cmd.FromAddr,
		"credentials": len(cmd.Credentials),
	}).Debug("process NotarizeRequest")

	ctx, cancel := context.WithTimeout(context.Background(), s.conf.TCPTimeout)
	defer cancel()

	written, err := s.notarization.OnNotarize(ctx, cmd)

	rpc.Respond(&net.NotarizeResponse{
		FromAddr: s.trans.LocalAddr(),
		Written:  written,
	}, err)
}
