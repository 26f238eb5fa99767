package reactor_test

import (
	"context"
	"fmt"
	"time"

	"github.com/joeycumines/go-reactor"
)

func ExampleReactor_Run() {
	loop, err := reactor.New()
	if err != nil {
		panic(err)
	}
	defer loop.Close()

	loop.AddTimer(10*time.Millisecond, func(*reactor.Timer) {
		fmt.Println("timer")
	})
	loop.FutureTick(func(reactor.Loop) {
		fmt.Println("future tick")
	})
	loop.NextTick(func(l reactor.Loop) {
		fmt.Println("next tick")
		l.NextTick(func(reactor.Loop) {
			fmt.Println("nested next tick")
		})
	})

	// returns once there is nothing left to do
	if err := loop.Run(context.Background()); err != nil {
		panic(err)
	}

	//output:
	//next tick
	//nested next tick
	//future tick
	//timer
}

func ExampleReactor_AddPeriodicTimer() {
	loop, err := reactor.New()
	if err != nil {
		panic(err)
	}
	defer loop.Close()

	var count int
	loop.AddPeriodicTimer(5*time.Millisecond, func(timer *reactor.Timer) {
		count++
		fmt.Println("tick", count)
		if count == 3 {
			timer.Cancel()
		}
	})

	if err := loop.Run(context.Background()); err != nil {
		panic(err)
	}

	//output:
	//tick 1
	//tick 2
	//tick 3
}
