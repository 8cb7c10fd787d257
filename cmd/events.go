package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/eaglebank/accounts/internal/config"
	"github.com/eaglebank/accounts/shared/events"
	sharedredis "github.com/eaglebank/accounts/shared/redis"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail account lifecycle events from Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cfg.Redis.Enabled() {
			return errors.New("REDIS_ADDR is required to read account events")
		}

		redis, err := sharedredis.NewClient(cmd.Context(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redis.Close()

		group, _ := cmd.Flags().GetString("group")
		consumer, _ := cmd.Flags().GetString("consumer")
		if consumer == "" {
			host, _ := os.Hostname()
			consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
		}

		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    group,
			Consumer: consumer,
			Stream:   events.AccountEventsStream,
			Handler:  logAccountEvent,
		})
		if err := subscriber.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().String("group", "account-events-tail", "consumer group name")
	eventsCmd.Flags().String("consumer", "", "consumer name (defaults to host-pid)")
}

func logAccountEvent(_ context.Context, event events.Event) error {
	switch event.Type {
	case events.AccountCreated:
		var data events.AccountCreatedEvent
		if err := events.DecodeData(event, &data); err != nil {
			return err
		}
		log.Printf("%s account=%d name=%q email=%q", event.Type, data.AccountID, data.Name, data.Email)
	case events.AccountUpdated:
		var data events.AccountUpdatedEvent
		if err := events.DecodeData(event, &data); err != nil {
			return err
		}
		log.Printf("%s account=%d name=%q email=%q", event.Type, data.AccountID, data.Name, data.Email)
	case events.AccountDeleted:
		var data events.AccountDeletedEvent
		if err := events.DecodeData(event, &data); err != nil {
			return err
		}
		log.Printf("%s account=%d", event.Type, data.AccountID)
	default:
		log.Printf("Ignoring unknown event type %q", event.Type)
	}
	return nil
}
