package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSetDataDir(t *testing.T) {
	conf := NewDefaultConfig()

	conf.SetDataDir("/tmp/halo-test")
	if conf.DatabaseDir != filepath.Join("/tmp/halo-test", DefaultBadgerFile) {
		t.Fatalf("default database dir should follow the data dir, got %s", conf.DatabaseDir)
	}
	if conf.Keyfile() != filepath.Join("/tmp/halo-test", DefaultKeyfile) {
		t.Fatalf("keyfile should be in the data dir, got %s", conf.Keyfile())
	}

	conf = NewDefaultConfig()
	conf.DatabaseDir = "/var/db"
	conf.SetDataDir("/tmp/halo-test")
	if conf.DatabaseDir != "/var/db" {
		t.Fatalf("explicit database dir should be kept, got %s", conf.DatabaseDir)
	}
}

func TestSpaceConfig(t *testing.T) {
	conf := NewTestConfig(t, logrus.InfoLevel)
	conf.HeartbeatTimeout = 5 * time.Millisecond
	conf.SyncLimit = 7
	conf.NotarizeTimeout = 3 * time.Second
	conf.RetryTimeout = 2 * time.Second
	conf.SuccessDelay = time.Second

	sc := conf.SpaceConfig()

	if sc.HeartbeatTimeout != conf.HeartbeatTimeout || sc.SyncLimit != 7 || sc.TCPTimeout != conf.TCPTimeout {
		t.Fatalf("space config does not match: %+v", sc)
	}
	if sc.Notarization.Timeout != 3*time.Second ||
		sc.Notarization.RetryTimeout != 2*time.Second ||
		sc.Notarization.SuccessDelay != time.Second {
		t.Fatalf("notarization config does not match: %+v", sc.Notarization)
	}
	if sc.Logger == nil {
		t.Fatalf("space config should carry the logger")
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"unknown": logrus.DebugLevel,
	}
	for s, l := range cases {
		if LogLevel(s) != l {
			t.Fatalf("LogLevel(%s) should be %v, not %v", s, l, LogLevel(s))
		}
	}
}

func TestLoggerFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "halo")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	conf := NewDefaultConfig()
	conf.LogLevel = "info"
	conf.LogFile = filepath.Join(dir, "halo.log")

	logger := conf.Logger()
	logger.Logger.Out = ioutil.Discard
	logger.Info("hello file")

	data, err := ioutil.ReadFile(conf.LogFile)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("log file should contain the entry, got %q", data)
	}
	if !strings.Contains(string(data), `"prefix":"halo"`) {
		t.Fatalf("log file entries should carry the halo prefix, got %q", data)
	}
}
