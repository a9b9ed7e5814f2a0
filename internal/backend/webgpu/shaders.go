package webgpu

import "github.com/born-ml/lazyml/internal/backend"

// Every shader binds its buffers in backend.SignatureOf order starting at 0,
// followed by the Params uniform. Unused Params fields are zero.

const paramsStruct = `
struct Params {
    a: u32,
    b: u32,
    c: u32,
    d: u32,
}
`

// copyShader: dst[i] = src[i] for i < n.
const copyShader = paramsStruct + `
@group(0) @binding(0) var<storage, read_write> dst: array<f32>;
@group(0) @binding(1) var<storage, read> src: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i < params.a) {
        dst[i] = src[i];
    }
}
`

// zeroShader clears buf[0..n), striding by the total invocation count.
const zeroShader = paramsStruct + `
@group(0) @binding(0) var<storage, read_write> buf: array<f32>;
@group(0) @binding(1) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>,
        @builtin(num_workgroups) groups: vec3<u32>) {
    let stride = groups.x * 64u;
    for (var k = global_id.x; k < params.a; k = k + stride) {
        buf[k] = 0.0;
    }
}
`

// forwardShader: result[j] = sigmoid(b[j] + sum_r act[r] * w[r*cols + j]).
const forwardShader = paramsStruct + `
@group(0) @binding(0) var<storage, read> weights: array<f32>;
@group(0) @binding(1) var<storage, read> biases: array<f32>;
@group(0) @binding(2) var<storage, read> act: array<f32>;
@group(0) @binding(3) var<storage, read_write> result: array<f32>;
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let j = global_id.x;
    let rows = params.a;
    let cols = params.b;
    if (j >= cols) {
        return;
    }
    var sum = biases[j];
    for (var r = 0u; r < rows; r = r + 1u) {
        sum = sum + act[r] * weights[r * cols + j];
    }
    result[j] = 1.0 / (1.0 + exp(-sum));
}
`

// backpropInitShader: grad[j] = act[j] - grad[j].
const backpropInitShader = paramsStruct + `
@group(0) @binding(0) var<storage, read> act: array<f32>;
@group(0) @binding(1) var<storage, read_write> grad: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let j = global_id.x;
    if (j < params.a) {
        grad[j] = act[j] - grad[j];
    }
}
`

// backpropStepShader: invocation i owns row i of grad_weights and
// prev_grad[i], and grad_biases[i].
const backpropStepShader = paramsStruct + `
@group(0) @binding(0) var<storage, read> weights: array<f32>;
@group(0) @binding(1) var<storage, read_write> grad_weights: array<f32>;
@group(0) @binding(2) var<storage, read_write> grad_biases: array<f32>;
@group(0) @binding(3) var<storage, read> act: array<f32>;
@group(0) @binding(4) var<storage, read> prev_act: array<f32>;
@group(0) @binding(5) var<storage, read> grad: array<f32>;
@group(0) @binding(6) var<storage, read_write> prev_grad: array<f32>;
@group(0) @binding(7) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    let cols = params.a;
    let rows = params.b;
    if (i < rows) {
        var acc = 0.0;
        for (var j = 0u; j < cols; j = j + 1u) {
            let delta = grad[j] * act[j] * (1.0 - act[j]);
            let idx = i * cols + j;
            grad_weights[idx] = grad_weights[idx] + delta * prev_act[i];
            acc = acc + weights[idx] * delta;
        }
        prev_grad[i] = acc;
    }
    if (i < cols) {
        grad_biases[i] = grad_biases[i] + grad[i] * act[i] * (1.0 - act[i]);
    }
}
`

// applyGradientShader: param -= (lr / n) * grad. The learning rate arrives as
// float bits in params.d.
const applyGradientShader = paramsStruct + `
@group(0) @binding(0) var<storage, read_write> weights: array<f32>;
@group(0) @binding(1) var<storage, read> grad_weights: array<f32>;
@group(0) @binding(2) var<storage, read_write> biases: array<f32>;
@group(0) @binding(3) var<storage, read> grad_biases: array<f32>;
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    let cols = params.a;
    let rows = params.b;
    let rate = bitcast<f32>(params.d) / f32(params.c);
    if (i < rows) {
        for (var j = 0u; j < cols; j = j + 1u) {
            let idx = i * cols + j;
            weights[idx] = weights[idx] - rate * grad_weights[idx];
        }
    }
    if (i < cols) {
        biases[i] = biases[i] - rate * grad_biases[i];
    }
}
`

var shaders = map[backend.KernelName]string{
	backend.KernelCopy:          copyShader,
	backend.KernelZero:          zeroShader,
	backend.KernelForward:       forwardShader,
	backend.KernelBackpropInit:  backpropInitShader,
	backend.KernelBackpropStep:  backpropStepShader,
	backend.KernelApplyGradient: applyGradientShader,
}

// packParams lays out up to four u32 params as the Params uniform.
func packParams(params []uint32) [paramsSize / 4]uint32 {
	var out [paramsSize / 4]uint32
	copy(out[:], params)
	return out
}
