// Package config defines the configuration of a halo node.
//
// The halo command reads configuration values from flags and from an optional
// halo.toml (or .json, .yaml) file in the data directory, and maps them onto
// Config through its mapstructure tags. Config.DataDir is also where halo
// expects to find a few additional files:
//
//	priv_key // the hex seed of the device key (cf. halo keygen).
//	key.pub // the device public key.
//	feed_key // (optional) the hex seed of the node's control feed key.
//	identity_key, space_key // (founders only) created by halo run --genesis.
//	peers.json // a JSON file containing the list of peers to connect to.
package config
