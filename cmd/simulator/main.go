package main

import (
	"context"
	"log"
	"time"

	"talentbridge/simulator"
)

func main() {
	config := simulator.SimConfig{
		NumPairs:         10,
		SimulationTime:   5 * time.Minute,
		MessageFrequency: 6.0,
		TypingChance:     0.4,
		ReadChance:       0.6,
		DisconnectRate:   0.02,
		EngineURL:        "http://localhost:8080",
	}

	log.Printf("Starting simulation with configuration:")
	log.Printf("- Engine URL: %s", config.EngineURL)
	log.Printf("- Pairs: %d", config.NumPairs)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Message frequency: %.1f messages/pair/minute", config.MessageFrequency)
	log.Printf("- Typing chance: %.2f", config.TypingChance)
	log.Printf("- Read chance: %.2f", config.ReadChance)
	log.Printf("- Disconnect rate: %.2f", config.DisconnectRate)

	sim := simulator.NewSimulator(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	stats := sim.GetStats()
	log.Printf("\nSimulation completed. Final stats:")
	log.Printf("- Messages sent: %d", stats.MessagesSent)
	log.Printf("- Messages received over sockets: %d", stats.MessagesReceived)
	log.Printf("- Read acks: %d", stats.ReadAcks)
	log.Printf("- Reconnects: %d", stats.Reconnects)
	log.Printf("- Errors: %d", stats.ErrorCount)
}
