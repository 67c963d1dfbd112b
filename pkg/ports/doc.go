/*
Package ports defines the driven ports (interfaces) for the Tendril runtime.

These interfaces decouple the core logic from external implementations, allowing
the runtime to work with various storage backends, bot sources and HTTP fetchers.

# Key Interfaces

  - BotRepository: Loads and saves whole bots (e.g., from Memory or PostgreSQL).
  - StateStore: Responsible for persisting and loading session State.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
  - APIExecutor: Performs the read-only calls of api executors.
  - StatelessEngine: The conversation interpreter, driven by adapters that manage state externally.
*/
package ports
