/*
Package simgym wraps an external, black-box simulator process as a reinforcement
learning environment with a uniform Reset / Step / Close interface.

The simulator computes nothing about the learning problem itself. A separate
control-plane server, owned by the simulator's plugin code, returns next state,
reward and done for every action. An Env therefore only does two things:

  - supervises one simulator process per episode, restarting it on every Reset
    with a fresh results directory (ResultsRoot/episode_N);
  - turns every Step into one HTTP round trip to the control plane.

Failures never crash the control loop. A simulator that fails to launch is
logged and shows up as failed steps; a failed step returns an unknown
observation, a NaN reward and done=true.

# Usage

	env, err := simgym.New(cfg, simgym.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	defer env.Close()

	ctx := context.Background()
	if _, err := env.Reset(ctx); err != nil {
		log.Fatal(err)
	}
	for {
		res := env.Step(ctx, 0.5)
		if res.Done {
			break
		}
	}
*/
package simgym
