// Package shutdown coordinates graceful termination of kvault-server.
//
// Hooks run in reverse registration order once SIGINT or SIGTERM arrives
// (or Trigger is called), sharing one timeout:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown("redis", redisSrv.Shutdown)
//	h.OnShutdown("device", func(context.Context) error { dev.Shutdown(); return nil })
//	err := h.Wait()
package shutdown
