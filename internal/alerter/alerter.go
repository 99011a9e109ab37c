package alerter

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/model"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gomarkdown/markdown"
)

// Alerter periodically evaluates the configured rules against its tasks and sends one
// consolidated notification per check when any rule fires.
type Alerter struct {
	tasks         []model.Task
	rules         []config.AlerterRule
	notifier      model.Notifier
	checkInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(cfg *config.AlerterConfig, tasks []model.Task, notifier model.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("check_interval must be positive, got %s", interval)
	}

	return &Alerter{
		tasks:         tasks,
		rules:         cfg.Rules,
		notifier:      notifier,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
	}, nil
}

// Start begins the periodic evaluation of alert rules. It blocks until Stop is called.
func (a *Alerter) Start() {
	log.Println("Alerter started")

	a.wg.Add(1)
	defer a.wg.Done()

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Evaluate()
		case <-a.stopChan:
			return
		}
	}
}

// Stop ends the evaluation loop and runs one last check.
func (a *Alerter) Stop() {
	log.Println("Stopping Alerter...")
	close(a.stopChan)
	a.wg.Wait()
	a.Evaluate()
}

// Evaluate checks every task once and notifies when any rule fired.
// It returns the number of tasks that produced alerts.
func (a *Alerter) Evaluate() int {
	var wg sync.WaitGroup
	resultsChan := make(chan string, len(a.tasks))

	for _, task := range a.tasks {
		var relevantRules []config.AlerterRule
		for _, rule := range a.rules {
			if rule.TaskName == task.Name() {
				relevantRules = append(relevantRules, rule)
			}
		}
		if len(relevantRules) == 0 {
			continue
		}

		wg.Add(1)
		go func(t model.Task) {
			defer wg.Done()
			if msg := t.AlerterMsg(relevantRules); msg != "" {
				resultsChan <- msg
			}
		}(task)
	}

	wg.Wait()
	close(resultsChan)

	var allMessages []string
	for msg := range resultsChan {
		allMessages = append(allMessages, msg)
	}
	if len(allMessages) == 0 {
		return 0
	}

	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(allMessages))

	if a.notifier == nil {
		return len(allMessages)
	}
	subject := fmt.Sprintf("AddrSpectra Alert Summary (%d Triggered)", len(allMessages))
	if err := a.notifier.Send(subject, RenderSummary(allMessages)); err != nil {
		log.Printf("ERROR: Failed to send consolidated alert notification: %v", err)
	} else {
		log.Printf("INFO: Consolidated alert notification sent successfully.")
	}
	return len(allMessages)
}

// RenderSummary joins markdown alert fragments under one heading and converts them to HTML.
func RenderSummary(messages []string) string {
	md := "# AddrSpectra Alert Summary\n\n" +
		"The following alerts were triggered during the last check:\n\n---\n\n" +
		strings.Join(messages, "\n\n---\n\n")
	return string(markdown.ToHTML([]byte(md), nil, nil))
}
