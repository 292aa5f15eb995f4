package benchmark

import (
	"fmt"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/registry"
)

// latency times one operation per repetition over a single input sample.
type latency struct {
	params api.LatencyParams
}

func (latency) state() State { return StateLatencyRun }
func (latency) samples() uint64 { return 1 }

func (l latency) run(x *Execution) error {
	remote, err := x.prepare(1)
	if err != nil {
		return err
	}
	indexers := x.indexers(1)

	x.logger.Info("warming up", "iterations", l.params.WarmupIterations)
	for i := uint64(0); i < l.params.WarmupIterations; i++ {
		result, err := x.registry.Operate(x.bench, remote, indexers)
		if err != nil {
			return fmt.Errorf("warmup iteration %d: %w", i, err)
		}
		if err := result.Destroy(); err != nil {
			return fmt.Errorf("warmup iteration %d: %w", i, err)
		}
	}

	x.logger.Info("testing", "repetitions", l.params.Repetitions)
	results := make([]*registry.Handle, 0, l.params.Repetitions)
	for i := uint64(0); i < l.params.Repetitions; i++ {
		var result *registry.Handle
		err := x.measure(EventOperation, 1, func() error {
			var err error
			result, err = x.registry.Operate(x.bench, remote, indexers)
			return err
		})
		if err != nil {
			return fmt.Errorf("repetition %d: %w", i, err)
		}
		results = append(results, x.own(result))
	}

	for i, result := range results {
		decoded, err := x.retrieve(result)
		if err != nil {
			return fmt.Errorf("repetition %d: %w", i, err)
		}
		x.validator.check(decoded, 1)
	}
	return nil
}

// offline runs the whole sample set as one batched operation.
type offline struct {
	params api.OfflineParams
}

func (offline) state() State { return StateOfflineRun }
func (o offline) samples() uint64 { return o.params.SampleCount }

func (o offline) run(x *Execution) error {
	n := o.params.SampleCount
	remote, err := x.prepare(n)
	if err != nil {
		return err
	}

	x.logger.Info("testing", "samples", n)
	var result *registry.Handle
	err = x.measure(EventOperation, n, func() error {
		var err error
		result, err = x.registry.Operate(x.bench, remote, x.indexers(n))
		return err
	})
	if err != nil {
		return fmt.Errorf("batched operation: %w", err)
	}
	x.own(result)

	decoded, err := x.retrieve(result)
	if err != nil {
		return err
	}
	x.validator.check(decoded, n)
	return nil
}

// prepare packs samples of every operand, encodes each pack, encrypts the encrypted
// pack and loads everything into the backend. The encrypted operands form pack 0 and the
// plain ones the next pack.
func (x *Execution) prepare(samples uint64) (*registry.Handle, error) {
	desc := x.entry.Descriptor

	var cipher, plain []api.DataPack
	for k := 0; k < x.loader.ParameterCount(); k++ {
		pack := api.DataPack{ParamPosition: uint64(k), Buffers: make([]api.NativeDataBuffer, samples)}
		for s := uint64(0); s < samples; s++ {
			pack.Buffers[s] = x.loader.Input(s, k)
		}
		if desc.Encrypted(k) {
			cipher = append(cipher, pack)
		} else {
			plain = append(plain, pack)
		}
	}

	var locals []*registry.Handle
	pack := 0
	for _, group := range []struct {
		packs     []api.DataPack
		encrypted bool
	}{{cipher, true}, {plain, false}} {
		if len(group.packs) == 0 {
			continue
		}
		eventType := fmt.Sprintf("%s/pack-%d", EventEncode, pack)
		x.logger.Info("encoding", "event_type", eventType, "operands", len(group.packs))
		var encoded *registry.Handle
		err := x.measure(eventType, samples, func() error {
			var err error
			encoded, err = x.registry.Encode(x.bench, group.packs)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("encoding pack %d: %w", pack, err)
		}
		x.own(encoded)
		pack++

		if !group.encrypted {
			locals = append(locals, encoded)
			continue
		}

		x.logger.Info("encrypting")
		var encrypted *registry.Handle
		err = x.measure(EventEncrypt, samples, func() error {
			var err error
			encrypted, err = x.registry.Encrypt(x.bench, encoded)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("encrypting: %w", err)
		}
		locals = append(locals, x.own(encrypted))
	}

	x.logger.Info("loading")
	var remote *registry.Handle
	err := x.measure(EventLoad, samples, func() error {
		var err error
		remote, err = x.registry.LoadInputs(x.bench, locals)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading: %w", err)
	}
	return x.own(remote), nil
}

// indexers selects samples [0, batch) of every operand.
func (x *Execution) indexers(batch uint64) []api.ParameterIndexer {
	out := make([]api.ParameterIndexer, x.loader.ParameterCount())
	for k := range out {
		out[k] = api.ParameterIndexer{ValueIndex: 0, BatchSize: batch}
	}
	return out
}

// retrieve stores a remote result, decrypts it when any operand was encrypted, and
// decodes it.
func (x *Execution) retrieve(remote *registry.Handle) ([]api.ResultData, error) {
	x.logger.Info("storing")
	var locals []*registry.Handle
	err := x.measure(EventStore, 1, func() error {
		var err error
		locals, err = x.registry.Store(x.bench, remote)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("storing: %w", err)
	}
	for _, l := range locals {
		x.own(l)
	}

	var decoded []api.ResultData
	for _, local := range locals {
		plain := local
		if x.entry.Descriptor.CipherParamMask != 0 {
			x.logger.Info("decrypting")
			err := x.measure(EventDecrypt, 1, func() error {
				var err error
				plain, err = x.registry.Decrypt(x.bench, local)
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("decrypting: %w", err)
			}
			x.own(plain)
		}

		x.logger.Info("decoding")
		err := x.measure(EventDecode, 1, func() error {
			results, err := x.registry.Decode(x.bench, plain)
			decoded = append(decoded, results...)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("decoding: %w", err)
		}
	}
	return decoded, nil
}
