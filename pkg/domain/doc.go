/*
Package domain contains the core domain models of the simulator environment.

It defines the values exchanged between the control loop, the simulator
supervisor and the control-plane server. This package is kept pure and free
of external dependencies like I/O or persistence.

# Key Entities

  - Observation: Opaque simulator state; the zero value means "unknown".
  - StepResult: The fixed (observation, reward, done, info) outcome of a step.
  - Experience: One logged (state, action, reward, next_state) transition.
  - LifecycleHooks: Callbacks for episode, process and step observability.
*/
package domain
