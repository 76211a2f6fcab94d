package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/mosaicnetworks/halo/src/feed"
	"github.com/mosaicnetworks/halo/src/party"
	"github.com/mosaicnetworks/halo/src/pipeline"
	"github.com/mosaicnetworks/halo/src/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewInspectCmd produces a command that replays a badger store and prints
// the resulting space.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inspect",
		Short:   "Print the members, feeds and timeframe of a stored space",
		PreRunE: loadConfig,
		RunE:    inspect,
	}
	AddInspectFlags(cmd)
	return cmd
}

// AddInspectFlags adds flags to the inspect command
func AddInspectFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Halo.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("db", _config.Halo.DatabaseDir, "Dabatabase directory")
	cmd.Flags().String("log", "warn", "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("space", _config.Halo.SpaceKey, "Public key of the space, defaults to the key in the data directory")
	cmd.Flags().String("genesis-feed", _config.Halo.GenesisFeed, "Public key of the genesis feed, defaults to the key in the data directory")
}

// Report is the output of the inspect command.
type Report struct {
	Space       string           `json:"space"`
	GenesisFeed string           `json:"genesis_feed"`
	Members     []service.Member `json:"members"`
	Feeds       []service.Feed   `json:"feeds"`
	Timeframe   map[string]int64 `json:"timeframe"`
	Processed   map[string]int64 `json:"processed"`
	// Saved is the processed timeframe persisted by the last node that used
	// the store. It lags Processed when the node stopped mid-drain.
	Saved map[string]int64 `json:"saved_processed"`
}

// keyFromFlagOrFile parses hexKey, or reads the private key in keyfile when
// hexKey is empty.
func keyFromFlagOrFile(hexKey, keyfile string) (keys.PublicKey, error) {
	if hexKey != "" {
		return keys.ParsePublicKey(hexKey)
	}
	return keys.NewSimpleKeyfile(keyfile).LoadInto(keys.NewKeyring(), false)
}

func inspect(cmd *cobra.Command, args []string) error {
	conf := &_config.Halo
	logger := conf.Logger()

	spaceKey, err := keyFromFlagOrFile(conf.SpaceKey, conf.SpaceKeyfile())
	if err != nil {
		return fmt.Errorf("Reading space key: %s", err)
	}

	genesisFeed, err := keyFromFlagOrFile(conf.GenesisFeed, conf.FeedKeyfile())
	if err != nil {
		return fmt.Errorf("Reading genesis feed key: %s", err)
	}

	store, err := feed.LoadBadgerStore(conf.DatabaseDir)
	if err != nil {
		return fmt.Errorf("Loading store: %s", err)
	}

	feeds := feed.NewFeedStore(store, logger.WithField("component", "feeds"))
	defer feeds.Close()

	report, err := buildReport(feeds, spaceKey, genesisFeed, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// buildReport replays feeds from genesisFeed. The saved processed timeframe
// is read first because the replay overwrites it.
func buildReport(feeds *feed.FeedStore, spaceKey, genesisFeed keys.PublicKey, logger *logrus.Entry) (*Report, error) {
	saved := map[string]int64{}
	tf, err := feeds.Store().GetTimeframe(pipeline.ProcessedTimeframe)
	switch {
	case err == nil:
		saved = service.Frames(tf)
	case !common.IsStore(err, common.KeyNotFound):
		return nil, fmt.Errorf("Reading processed timeframe: %s", err)
	}

	state := party.NewPartyStateMachine(spaceKey, nil, logger.WithField("component", "party"))

	p := pipeline.NewPipeline(feeds, state, logger.WithField("component", "pipeline"))
	defer p.Close()

	p.Track(genesisFeed)
	p.Drain()

	report := &Report{
		Space:       spaceKey.Hex(),
		GenesisFeed: genesisFeed.Hex(),
		Members:     []service.Member{},
		Feeds:       []service.Feed{},
		Timeframe:   service.Frames(feeds.Timeframe()),
		Processed:   service.Frames(p.Processed()),
		Saved:       saved,
	}
	for _, m := range state.Members() {
		report.Members = append(report.Members, service.NewMember(m))
	}
	for _, f := range state.Feeds() {
		report.Feeds = append(report.Feeds, service.NewFeed(f))
	}

	return report, nil
}
