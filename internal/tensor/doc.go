// Package tensor provides the per-sample float32 buffer primitive used by
// the runtime graph. It covers storage, shape bookkeeping and copying only;
// numeric kernels live behind the layer contract.
package tensor
