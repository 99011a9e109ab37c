package manager

import (
	"AddrSpectra/internal/alerter"
	"AddrSpectra/internal/config"
	_ "AddrSpectra/internal/engine/impl/histogram" // Registers histogram task aggregator
	"AddrSpectra/internal/factory"
	"AddrSpectra/internal/model"
	"AddrSpectra/internal/notification"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// TimestampLayout names snapshot directories and rows.
const TimestampLayout = "2006-01-02_15-04-05"

// Manager orchestrates a set of aggregation tasks and their writers.
type Manager struct {
	taskGroups []factory.TaskGroup
	alerter    *alerter.Alerter

	// Worker pool for concurrent packet processing
	packetChannel chan *model.PacketInfo
	numWorkers    int
	workerWg      sync.WaitGroup

	// Snapshotting and Resetting resources
	period        time.Duration // Global measurement period
	done          chan struct{}
	snapshotterWg sync.WaitGroup
	resetterWg    sync.WaitGroup
}

// NewManager creates a Manager with the task groups, writers and alerter described by cfg.
func NewManager(cfg *config.Config) (*Manager, error) {
	taskGroups, err := factory.Create(cfg)
	if err != nil {
		return nil, err
	}

	period, err := time.ParseDuration(cfg.Aggregator.Period)
	if err != nil {
		return nil, fmt.Errorf("invalid aggregator period: %w", err)
	}

	m, err := NewManagerWithGroups(taskGroups, period, cfg.Aggregator.NumWorkers, cfg.Aggregator.SizeOfPacketChannel)
	if err != nil {
		return nil, err
	}

	if cfg.Alerter.Enabled {
		if cfg.SMTP.Host == "" {
			log.Println("Alerter is enabled in config, but no notifiers are configured. Alerter will not run.")
			return m, nil
		}
		m.alerter, err = alerter.NewAlerter(&cfg.Alerter, m.Tasks(), notification.NewEmailNotifier(cfg.SMTP))
		if err != nil {
			return nil, fmt.Errorf("failed to create alerter: %w", err)
		}
		log.Println("Alerter enabled and initialized.")
	}

	return m, nil
}

// NewManagerWithGroups creates a Manager around task groups built by the caller.
func NewManagerWithGroups(groups []factory.TaskGroup, period time.Duration, numWorkers, channelSize int) (*Manager, error) {
	if period <= 0 {
		return nil, fmt.Errorf("aggregator period must be a positive duration")
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if channelSize < 0 {
		channelSize = 0
	}
	return &Manager{
		taskGroups:    groups,
		period:        period,
		done:          make(chan struct{}),
		packetChannel: make(chan *model.PacketInfo, channelSize),
		numWorkers:    numWorkers,
	}, nil
}

// Tasks returns every task across all groups.
func (m *Manager) Tasks() []model.Task {
	var all []model.Task
	for _, group := range m.taskGroups {
		all = append(all, group.Tasks...)
	}
	return all
}

// Start begins the manager's packet processing workers, snapshotter, and resetter goroutines.
func (m *Manager) Start() {
	// For each group, start a dedicated snapshotter for each of its writers.
	for _, group := range m.taskGroups {
		for _, writer := range group.Writers {
			m.snapshotterWg.Add(1)
			go m.runSnapshotter(writer, group.Tasks)
			log.Printf("Started snapshotter for a writer with interval %s, handling %d tasks.", writer.GetInterval(), len(group.Tasks))
		}
	}

	// Start the global resetter for all tasks across all groups.
	m.resetterWg.Add(1)
	go m.runResetter()
	log.Printf("Started global resetter with period %s", m.period)

	if m.alerter != nil {
		go m.alerter.Start()
	}

	m.workerWg.Add(m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		go m.worker()
	}
	log.Printf("Manager started with %d workers.", m.numWorkers)
}

// runSnapshotter runs a dedicated snapshot loop for a single writer and its associated tasks.
// A writer without a positive interval only receives the final snapshot taken on Stop.
func (m *Manager) runSnapshotter(writer model.Writer, tasks []model.Task) {
	defer m.snapshotterWg.Done()

	var tick <-chan time.Time
	if interval := writer.GetInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			m.takeSnapshotForWriter(writer, tasks)
		case <-m.done:
			m.takeSnapshotForWriter(writer, tasks)
			if closer, ok := writer.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					log.Printf("Error closing writer: %v", err)
				}
			}
			return
		}
	}
}

// takeSnapshotForWriter orchestrates taking and writing a snapshot for a specific writer.
func (m *Manager) takeSnapshotForWriter(writer model.Writer, tasks []model.Task) {
	timestamp := time.Now().Format(TimestampLayout)
	log.Printf("Taking snapshot for writer at %s for %d tasks.", timestamp, len(tasks))

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, task := range tasks {
		go func(t model.Task) {
			defer wg.Done()
			if err := writer.Write(t.Snapshot(), timestamp); err != nil {
				log.Printf("Error writing snapshot for task %s: %v", t.Name(), err)
			}
		}(task)
	}
	wg.Wait()

	log.Printf("Completed snapshot for writer at %s.", time.Now().Format(TimestampLayout))
}

// runResetter runs a dedicated loop to reset all tasks periodically.
func (m *Manager) runResetter() {
	defer m.resetterWg.Done()
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.resetAllTasks()
		case <-m.done:
			log.Println("Resetter shutting down.")
			return
		}
	}
}

// resetAllTasks iterates through all tasks across all groups and calls their Reset method.
func (m *Manager) resetAllTasks() {
	log.Printf("Resetting all tasks for new measurement period at %s", time.Now().Format(TimestampLayout))
	var wg sync.WaitGroup
	for _, task := range m.Tasks() {
		wg.Add(1)
		go func(t model.Task) {
			defer wg.Done()
			t.Reset()
		}(task)
	}
	wg.Wait()
	log.Println("All tasks have been reset at ", time.Now().Format(TimestampLayout))
}

// Stop drains the input, takes a final snapshot for every writer and stops the alerter.
func (m *Manager) Stop() {
	log.Println("Manager stopping...")
	close(m.packetChannel)

	log.Println("Waiting for workers to finish...")
	m.workerWg.Wait()

	close(m.done)
	log.Println("Waiting for snapshotters and resetter to finish...")
	m.snapshotterWg.Wait()
	m.resetterWg.Wait()

	if m.alerter != nil {
		m.alerter.Stop()
	}

	log.Println("Manager stopped.")
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for info := range m.packetChannel {
		for _, group := range m.taskGroups {
			for _, task := range group.Tasks {
				task.ProcessPacket(info)
			}
		}
	}
}

// InputChannel returns the channel packets are fed into. It is closed by Stop.
func (m *Manager) InputChannel() chan<- *model.PacketInfo {
	return m.packetChannel
}
