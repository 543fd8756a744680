package engine

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/emunet/emunet/lab"
)

// Every live network is tracked process-wide so an interrupt or failure
// can release partially built experiments that nothing references anymore.
var (
	liveMu sync.Mutex
	live   = map[*SimNet]bool{}
)

func register(n *SimNet) {
	liveMu.Lock()
	defer liveMu.Unlock()
	live[n] = true
}

func unregister(n *SimNet) {
	liveMu.Lock()
	defer liveMu.Unlock()
	delete(live, n)
}

// CleanupAll stops every live network. It is idempotent: a second call
// finds nothing to release.
func CleanupAll() error {
	liveMu.Lock()
	stale := make([]*SimNet, 0, len(live))
	for n := range live {
		stale = append(stale, n)
	}
	liveMu.Unlock()

	if len(stale) == 0 {
		logrus.Debug("cleanup: nothing to release")
		return nil
	}
	logrus.Infof("cleanup: releasing %d leftover network(s)", len(stale))
	for _, n := range stale {
		if err := n.Stop(); err != nil {
			return err
		}
	}
	return nil
}

// Cleaner adapts CleanupAll to the launcher's cleanup contract.
func Cleaner() lab.Cleaner {
	return lab.CleanerFunc(CleanupAll)
}
